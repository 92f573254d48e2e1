// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pid_test

import (
	"testing"

	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/pkt"
	"flowmesh.dev/fsession/prop"
)

func TestConfigurePIDLifecycle(t *testing.T) {
	p := pid.New("video0")
	if p.State() != pid.StateNew {
		t.Fatalf("new PID should start in StateNew, got %s", p.State())
	}

	changed := p.ConfigurePID(func(m *prop.Map) bool {
		return m.Set(prop.FourCCKey(prop.PropWidth), prop.NewUInt(1280))
	})
	if !changed || p.State() != pid.StateReady {
		t.Fatalf("first configure should change and settle to Ready, got changed=%v state=%s", changed, p.State())
	}

	changed = p.ConfigurePID(func(m *prop.Map) bool {
		return m.Set(prop.FourCCKey(prop.PropWidth), prop.NewUInt(1280))
	})
	if changed {
		t.Fatalf("reconfigure with an equal value must report unchanged")
	}
	if p.State() != pid.StateReady {
		t.Fatalf("PID should settle back to Ready even on a no-op reconfigure, got %s", p.State())
	}
}

func TestSendPacketRequiresInstance(t *testing.T) {
	p := pid.New("out0")
	pkt1, _ := pkt.NewAllocated(4)
	if err := p.SendPacket(pkt1); err == nil {
		t.Fatalf("SendPacket on an unlinked PID should fail")
	}
}

func TestSendPacketFansOutToAllInstances(t *testing.T) {
	p := pid.New("out0")
	a := p.AddInstance("sinkA", 0, 0)
	b := p.AddInstance("sinkB", 0, 0)

	packet, buf := pkt.NewAllocated(4)
	copy(buf, []byte{1, 2, 3, 4})
	if err := p.SendPacket(packet); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}

	got, err := a.Dequeue(4, 0)
	if err != nil || len(got.GetData()) != 4 {
		t.Fatalf("sinkA dequeue: %v", err)
	}
	got, err = b.Dequeue(4, 0)
	if err != nil || len(got.GetData()) != 4 {
		t.Fatalf("sinkB dequeue: %v", err)
	}
}

func TestBlockingByByteThreshold(t *testing.T) {
	p := pid.New("out0")
	inst := p.AddInstance("sink", 8, 0)

	pkt1, buf1 := pkt.NewAllocated(8)
	copy(buf1, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err := p.SendPacket(pkt1); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}
	if !inst.IsBlocking() {
		t.Fatalf("instance should be blocking once buffered bytes reach the threshold")
	}
	if _, err := inst.Dequeue(8, 0); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if inst.IsBlocking() {
		t.Fatalf("instance should unblock once drained below threshold")
	}
}

func TestSparsePIDBlocksOnAnyBufferedPacket(t *testing.T) {
	p := pid.New("meta0")
	p.ConfigurePID(func(m *prop.Map) bool {
		return m.Set(prop.FourCCKey(prop.PropSparse), prop.NewBool(true))
	})
	inst := p.AddInstance("sink", 0, 0)

	packet, _ := pkt.NewAllocated(1)
	if err := p.SendPacket(packet); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}
	if !inst.IsBlocking() {
		t.Fatalf("sparse instance should block as soon as any packet is buffered")
	}
}

func TestSendPacketStampsSessionReservoirOntoPackets(t *testing.T) {
	p := pid.New("out0")
	r := prop.NewReservoir(4)
	p.SetReservoir(r)
	inst := p.AddInstance("sink", 0, 0)

	first, _ := pkt.NewAllocated(0)
	first.Props().Set(prop.NameKey("k"), prop.NewSInt(1))
	if err := p.SendPacket(first); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}
	got, err := inst.Dequeue(0, 0)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	firstProps := got.Props()
	got.Unref() // refcount reaches zero: firstProps returns to the reservoir

	second, _ := pkt.NewAllocated(0)
	if err := p.SendPacket(second); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}
	got2, err := inst.Dequeue(0, 0)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if secondProps := got2.Props(); secondProps != firstProps {
		t.Fatalf("second packet should have borrowed the first packet's recycled props map")
	}
	if got2.Props().Has(prop.NameKey("k")) {
		t.Fatalf("recycled props map should have been cleared")
	}
}

func TestRemoveAndDrain(t *testing.T) {
	p := pid.New("out0")
	inst := p.AddInstance("sink", 0, 0)
	packet, _ := pkt.NewAllocated(0)
	if err := p.SendPacket(packet); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}

	p.Remove()
	if p.AllInstancesDrained() {
		t.Fatalf("instance still has a buffered packet, should not report drained")
	}
	if _, err := inst.Dequeue(0, 0); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if !p.AllInstancesDrained() {
		t.Fatalf("instance queue is empty, should report drained")
	}
	p.Discard()
	if p.State() != pid.StateDiscarding {
		t.Fatalf("state after Discard = %s, want discarding", p.State())
	}
}
