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


package blobstore

import (
	"encoding/hex"
	"slices"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// keyPrefix namespaces all content-addressed artifacts in the store.
const keyPrefix = "blobs/"

// KeyFor derives the content-addressed key for data: the hex BLAKE2b-256
// digest under the blobs/ prefix, plus an optional suffix such as ".json"
// carrying the content type through the key.
func KeyFor(data []byte, suffix string) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return keyPrefix + hex.EncodeToString(h.Sum(nil)) + suffix
}

// ChecksumKeys derives a checksum over a set of keys, independent of their
// order. Used to content-address the artifact manifest from its
// constituent keys.
func ChecksumKeys(keys []string) string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)

	h, _ := blake2b.New(32, nil)
	h.Write([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}
