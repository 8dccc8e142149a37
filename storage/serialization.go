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

package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/vecsync/core"
)

// Record layout: file_path, content, embedding length, embedding floats,
// file_extension, file_size_bytes.

// RecordSize returns the encoded size of record in bytes.
func RecordSize(record *core.Record) int {
	size := ord.String.Size(record.FilePath)
	size += ord.String.Size(record.Content)
	size += varint.Int.Size(len(record.Embedding))
	for _, f := range record.Embedding {
		size += raw.Float32.Size(f)
	}
	size += ord.String.Size(record.Metadata.FileExtension)
	return size + varint.Int64.Size(record.Metadata.FileSizeBytes)
}

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, RecordSize(record))
	n := ord.String.Marshal(record.FilePath, buf)
	n += ord.String.Marshal(record.Content, buf[n:])
	n += varint.Int.Marshal(len(record.Embedding), buf[n:])
	for _, f := range record.Embedding {
		n += raw.Float32.Marshal(f, buf[n:])
	}
	n += ord.String.Marshal(record.Metadata.FileExtension, buf[n:])
	varint.Int64.Marshal(record.Metadata.FileSizeBytes, buf[n:])
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	var (
		record core.Record
		n, m   int
		err    error
	)

	if record.FilePath, n, err = ord.String.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: file_path: %w", ErrSerializationFailed, err)
	}
	if record.Content, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: content: %w", ErrSerializationFailed, err)
	}
	n += m

	var length int
	if length, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: embedding length: %w", ErrSerializationFailed, err)
	}
	n += m
	if length < 0 || length > (len(data)-n)/4 {
		return nil, fmt.Errorf("%w: embedding of %d floats in %d bytes", ErrTruncatedData, length, len(data)-n)
	}
	if length > 0 {
		record.Embedding = make([]float32, length)
		for i := range record.Embedding {
			if record.Embedding[i], m, err = raw.Float32.Unmarshal(data[n:]); err != nil {
				return nil, fmt.Errorf("%w: embedding: %w", ErrSerializationFailed, err)
			}
			n += m
		}
	}

	if record.Metadata.FileExtension, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: file_extension: %w", ErrSerializationFailed, err)
	}
	n += m
	if record.Metadata.FileSizeBytes, _, err = varint.Int64.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: file_size_bytes: %w", ErrSerializationFailed, err)
	}

	return &record, nil
}

// UnmarshalRecordPath decodes only the FilePath of an encoded record.
func UnmarshalRecordPath(data []byte) (string, error) {
	p, _, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: file_path: %w", ErrSerializationFailed, err)
	}
	return p, nil
}
