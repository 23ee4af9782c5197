// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/poiesic/docmill/blobstore"
	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/parse"
)

// artifactSet is the full blob output of one job: the compressed parsed
// blocks, the chunk sequence, and the manifest tying them together. All
// keys are content-addressed, so a reclaimed worker recomputing the same
// inputs arrives at the same keys and can skip committed ones.
type artifactSet struct {
	manifest    core.Manifest
	manifestKey string

	// order lists every key in deterministic write order; the manifest
	// goes last so its presence implies the artifacts it names exist.
	order []string
	blobs map[string][]byte
}

func buildArtifacts(job *core.Job, result *parse.Result, chunks []core.Chunk) (*artifactSet, error) {
	blocksJSON, err := json.Marshal(result.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	rawData := blobstore.Compress(blocksJSON)
	rawKey := blobstore.KeyFor(rawData, ".blocks.zst")

	chunksJSON, err := json.Marshal(chunks)
	if err != nil {
		return nil, fmt.Errorf("encode chunks: %w", err)
	}
	chunksKey := blobstore.KeyFor(chunksJSON, ".chunks.json")

	totalCharacters := 0
	for _, c := range chunks {
		totalCharacters += c.CharCount
	}

	manifest := core.Manifest{
		JobId:           strconv.FormatUint(uint64(job.Id), 10),
		RawKey:          rawKey,
		ChunksKey:       chunksKey,
		Checksum:        blobstore.ChecksumKeys([]string{rawKey, chunksKey}),
		TotalChunks:     len(chunks),
		TotalCharacters: totalCharacters,
		PageCount:       result.PageCount,
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	manifestKey := blobstore.KeyFor(manifestJSON, ".manifest.json")

	return &artifactSet{
		manifest:    manifest,
		manifestKey: manifestKey,
		order:       []string{rawKey, chunksKey, manifestKey},
		blobs: map[string][]byte{
			rawKey:      rawData,
			chunksKey:   chunksJSON,
			manifestKey: manifestJSON,
		},
	}, nil
}
