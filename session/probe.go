// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import "flowmesh.dev/fsession/filter"

// selectSourceByURL implements spec §6.2's probe_url sweep: every
// registered registry exposing ProbeURL is asked to score url/mime, and
// the highest-scoring registry wins, ties broken by lower Priority (the
// same "lower is preferred" convention as graph resolution's registry
// ordering, spec §3 "Registry").
func selectSourceByURL(registries []*filter.Registry, url, mime string) (*filter.Registry, bool) {
	var best *filter.Registry
	bestScore := filter.ProbeNotSupported
	for _, reg := range registries {
		if reg.ProbeURL == nil {
			continue
		}
		score := reg.ProbeURL(url, mime)
		if score == filter.ProbeNotSupported {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && reg.Priority < best.Priority) {
			best, bestScore = reg, score
		}
	}
	return best, best != nil
}

// selectSourceByData implements spec §6.2's probe_data refinement: called
// on the first bytes of a stream when probe_url alone was inconclusive
// (or absent), picking the registry with the highest reported score.
func selectSourceByData(registries []*filter.Registry, sample []byte) (*filter.Registry, []string, bool) {
	var best *filter.Registry
	var bestMime []string
	bestScore := filter.ProbeNotSupported
	for _, reg := range registries {
		if reg.ProbeData == nil {
			continue
		}
		score, mimeOrExt := reg.ProbeData(sample)
		if score == filter.ProbeNotSupported {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && reg.Priority < best.Priority) {
			best, bestScore, bestMime = reg, score, mimeOrExt
		}
	}
	return best, bestMime, best != nil
}
