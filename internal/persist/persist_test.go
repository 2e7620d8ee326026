// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package persist

import (
	"bytes"
	"os"
	"testing"
)

func sampleRecord() *Record {
	return &Record{
		Hash:             0xdeadbeef,
		Expire:           12345,
		HeaderLen:        42,
		RuleUUID:         7,
		ETag:             `"abc"`,
		LastModified:     "Mon, 02 Jan 2006 15:04:05 GMT",
		Host:             "example.com",
		Path:             "/a/b",
		Key:              []byte("GET\x1fexample.com\x1f/a/b"),
		ContentType:      "text/plain",
		TransferEncoding: "",
		ContentLength:    5,
		Chunked:          false,
		Body:             []byte("hello"),
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rec := sampleRecord()
	var buf bytes.Buffer
	if err := Encode(&buf, rec); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Hash != rec.Hash || got.Expire != rec.Expire || got.HeaderLen != rec.HeaderLen {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}
	if got.ETag != rec.ETag || got.LastModified != rec.LastModified || got.Host != rec.Host || got.Path != rec.Path {
		t.Fatalf("string fields mismatch: %+v", got)
	}
	if !bytes.Equal(got.Key, rec.Key) {
		t.Fatalf("key mismatch: %q vs %q", got.Key, rec.Key)
	}
	if !bytes.Equal(got.Body, rec.Body) {
		t.Fatalf("body mismatch: %q vs %q", got.Body, rec.Body)
	}
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	if _, err := Decode(&buf); err != ErrBadFormat {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}

func TestWriteLoadCleanup_RoundTrip(t *testing.T) {
	root := t.TempDir()
	rec := sampleRecord()

	path, err := Write(root, rec.Hash, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if _, err := os.Stat(tmpPath(path)); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file to be gone after rename")
	}

	loader, err := NewLoader(root)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if loader.Remaining() != 1 {
		t.Fatalf("expected 1 pending file, got %d", loader.Remaining())
	}
	recs := loader.Next(10, nil)
	if len(recs) != 1 || recs[0].Hash != rec.Hash {
		t.Fatalf("unexpected loaded records: %+v", recs)
	}

	cleaner := NewCleaner(root)
	removed := cleaner.Tick(10, func(string) bool { return false })
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed from disk")
	}
}

func TestLoader_SkipsCorruptFile(t *testing.T) {
	root := t.TempDir()
	// Write a valid record, then corrupt its bytes on disk so the
	// loader has to skip it rather than choke on it.
	rec := sampleRecord()
	path, err := Write(root, 1, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.WriteFile(path, []byte("not a valid record"), 0o640); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	loader, err := NewLoader(root)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	var badCount int
	recs := loader.Next(10, func(string, error) { badCount++ })
	if len(recs) != 0 || badCount != 1 {
		t.Fatalf("expected the corrupt file to be skipped, got recs=%d bad=%d", len(recs), badCount)
	}
}
