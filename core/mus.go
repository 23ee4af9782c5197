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


package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the records persisted in the job store. The Job
// record is the only durable record in the system, so the serializers are
// written by hand against the mus-go primitives instead of generated.
var (
	// IDMUS serializes ID values.
	IDMUS = idMUS{}
	// JobMUS serializes Job records.
	JobMUS = jobMUS{}

	jobErrorPtrMUS = ord.NewPtrSer[JobError](jobErrorMUS{})
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// zeroTimeMicro marks the zero time.Time on the wire so IsZero survives a
// round-trip. Unix-microsecond encoding matches the store's time unit.
const zeroTimeMicro = int64(math.MinInt64)

type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	v := zeroTimeMicro
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Marshal(v, bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || v == zeroTimeMicro {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	v := zeroTimeMicro
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Size(v)
}

func (timeMUS) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

type jobErrorMUS struct{}

func (jobErrorMUS) Marshal(e JobError, bs []byte) (n int) {
	n = ord.String.Marshal(e.Reason, bs)
	n += ord.String.Marshal(e.Detail, bs[n:])
	return n
}

func (jobErrorMUS) Unmarshal(bs []byte) (e JobError, n int, err error) {
	e.Reason, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	e.Detail, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (jobErrorMUS) Size(e JobError) int {
	return ord.String.Size(e.Reason) + ord.String.Size(e.Detail)
}

func (jobErrorMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

type chunkOptionsMUS struct{}

func (chunkOptionsMUS) Marshal(o ChunkOptions, bs []byte) (n int) {
	n = varint.Int.Marshal(o.TargetSize, bs)
	n += varint.Int.Marshal(o.Overlap, bs[n:])
	// Float bits through the varint encoder keeps the codec dependency-free
	// of the raw package's fixed-width layout.
	n += varint.Uint64.Marshal(math.Float64bits(o.MaxOverlapRatio), bs[n:])
	n += ord.Bool.Marshal(o.RespectHeadings, bs[n:])
	n += ord.String.Marshal(o.Splitter, bs[n:])
	return n
}

func (chunkOptionsMUS) Unmarshal(bs []byte) (o ChunkOptions, n int, err error) {
	var n1 int
	o.TargetSize, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	o.Overlap, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var bits uint64
	bits, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	o.MaxOverlapRatio = math.Float64frombits(bits)
	o.RespectHeadings, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	o.Splitter, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkOptionsMUS) Size(o ChunkOptions) int {
	return varint.Int.Size(o.TargetSize) +
		varint.Int.Size(o.Overlap) +
		varint.Uint64.Size(math.Float64bits(o.MaxOverlapRatio)) +
		ord.Bool.Size(o.RespectHeadings) +
		ord.String.Size(o.Splitter)
}

func (s chunkOptionsMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type parseOptionsMUS struct{}

func (parseOptionsMUS) Marshal(o ParseOptions, bs []byte) (n int) {
	n = ord.Bool.Marshal(o.ForceOCR, bs)
	n += ord.Bool.Marshal(o.FormatLines, bs[n:])
	n += ord.Bool.Marshal(o.StripExistingOCR, bs[n:])
	n += ord.Bool.Marshal(o.DisableImageExtraction, bs[n:])
	n += ord.Bool.Marshal(o.DisableOCRMath, bs[n:])
	n += ord.Bool.Marshal(o.UseLLM, bs[n:])
	n += ord.String.Marshal(o.Mode, bs[n:])
	return n
}

func (parseOptionsMUS) Unmarshal(bs []byte) (o ParseOptions, n int, err error) {
	var n1 int
	for _, field := range []*bool{
		&o.ForceOCR, &o.FormatLines, &o.StripExistingOCR,
		&o.DisableImageExtraction, &o.DisableOCRMath, &o.UseLLM,
	} {
		*field, n1, err = ord.Bool.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	o.Mode, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (parseOptionsMUS) Size(o ParseOptions) int {
	return ord.Bool.Size(o.ForceOCR) +
		ord.Bool.Size(o.FormatLines) +
		ord.Bool.Size(o.StripExistingOCR) +
		ord.Bool.Size(o.DisableImageExtraction) +
		ord.Bool.Size(o.DisableOCRMath) +
		ord.Bool.Size(o.UseLLM) +
		ord.String.Size(o.Mode)
}

func (s parseOptionsMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type jobMUS struct{}

func (jobMUS) Marshal(j Job, bs []byte) (n int) {
	n = IDMUS.Marshal(j.Id, bs)
	n += varint.Uint64.Marshal(uint64(j.State), bs[n:])
	n += ord.String.Marshal(j.DocumentRef, bs[n:])
	n += ord.String.Marshal(j.CallbackURL, bs[n:])
	n += chunkOptionsMUS{}.Marshal(j.Options.Chunking, bs[n:])
	n += parseOptionsMUS{}.Marshal(j.Options.Parsing, bs[n:])
	n += varint.Int.Marshal(j.Attempts.Parsing, bs[n:])
	n += varint.Int.Marshal(j.Attempts.Storing, bs[n:])
	n += varint.Int.Marshal(j.Attempts.Notifying, bs[n:])
	n += ord.String.Marshal(j.OwnerToken, bs[n:])
	n += timeMUS{}.Marshal(j.LeaseExpiresAt, bs[n:])
	n += timeMUS{}.Marshal(j.CreatedAt, bs[n:])
	n += timeMUS{}.Marshal(j.UpdatedAt, bs[n:])
	n += jobErrorPtrMUS.Marshal(j.LastError, bs[n:])
	n += ord.String.Marshal(j.ResultRef, bs[n:])
	return n
}

func (jobMUS) Unmarshal(bs []byte) (j Job, n int, err error) {
	var n1 int
	j.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var state uint64
	state, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.State = JobState(state)
	j.DocumentRef, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.CallbackURL, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.Options.Chunking, n1, err = chunkOptionsMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.Options.Parsing, n1, err = parseOptionsMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for _, field := range []*int{&j.Attempts.Parsing, &j.Attempts.Storing, &j.Attempts.Notifying} {
		*field, n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	j.OwnerToken, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for _, field := range []*time.Time{&j.LeaseExpiresAt, &j.CreatedAt, &j.UpdatedAt} {
		*field, n1, err = timeMUS{}.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	j.LastError, n1, err = jobErrorPtrMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	j.ResultRef, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (jobMUS) Size(j Job) int {
	return IDMUS.Size(j.Id) +
		varint.Uint64.Size(uint64(j.State)) +
		ord.String.Size(j.DocumentRef) +
		ord.String.Size(j.CallbackURL) +
		chunkOptionsMUS{}.Size(j.Options.Chunking) +
		parseOptionsMUS{}.Size(j.Options.Parsing) +
		varint.Int.Size(j.Attempts.Parsing) +
		varint.Int.Size(j.Attempts.Storing) +
		varint.Int.Size(j.Attempts.Notifying) +
		ord.String.Size(j.OwnerToken) +
		timeMUS{}.Size(j.LeaseExpiresAt) +
		timeMUS{}.Size(j.CreatedAt) +
		timeMUS{}.Size(j.UpdatedAt) +
		jobErrorPtrMUS.Size(j.LastError) +
		ord.String.Size(j.ResultRef)
}

func (s jobMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}
