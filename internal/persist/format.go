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

// Package persist implements the on-disk binary layout for cached
// entries, an idempotent tmp-then-rename writer, and the bounded-batch
// loader/saver/cleaner ticks the housekeeping scheduler drives.
package persist

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

const (
	magic   uint32 = 0x6e757374 // "nust"
	version uint32 = 1
)

// ErrBadFormat covers a corrupt or unrecognized file: callers should
// skip and log, never crash the loader.
var ErrBadFormat = errors.New("persist: bad file format")

// Record is the decoded form of one persisted entry.
type Record struct {
	Hash             uint64
	Expire           int64
	HeaderLen        uint32
	RuleUUID         int32
	ETag             string
	LastModified     string
	Host             string
	Path             string
	Key              []byte
	ContentType      string
	TransferEncoding string
	ContentLength    int64
	Chunked          bool
	Body             []byte
}

// Encode writes r's binary layout to w: magic+version, hash, expire,
// header_len, rule_uuid, the lengths of the seven variable fields,
// content_length, the chunked flag byte, the seven variable fields in
// declared order, then the body.
func Encode(w io.Writer, r *Record) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.BigEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, version); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, r.Hash); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, uint64(r.Expire)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, r.HeaderLen); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, r.RuleUUID); err != nil {
		return err
	}

	fields := [][]byte{
		[]byte(r.ETag),
		[]byte(r.LastModified),
		[]byte(r.Host),
		[]byte(r.Path),
		r.Key,
		[]byte(r.ContentType),
		[]byte(r.TransferEncoding),
	}
	for _, f := range fields {
		if err := binary.Write(bw, binary.BigEndian, uint32(len(f))); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.BigEndian, r.ContentLength); err != nil {
		return err
	}
	chunked := byte(0)
	if r.Chunked {
		chunked = 1
	}
	if err := bw.WriteByte(chunked); err != nil {
		return err
	}
	for _, f := range fields {
		if _, err := bw.Write(f); err != nil {
			return err
		}
	}
	if _, err := bw.Write(r.Body); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reverses Encode, validating the magic/version header.
func Decode(r io.Reader) (*Record, error) {
	br := bufio.NewReader(r)
	var gotMagic, gotVersion uint32
	if err := binary.Read(br, binary.BigEndian, &gotMagic); err != nil {
		return nil, ErrBadFormat
	}
	if gotMagic != magic {
		return nil, ErrBadFormat
	}
	if err := binary.Read(br, binary.BigEndian, &gotVersion); err != nil || gotVersion != version {
		return nil, ErrBadFormat
	}

	rec := &Record{}
	var expire uint64
	if err := binary.Read(br, binary.BigEndian, &rec.Hash); err != nil {
		return nil, ErrBadFormat
	}
	if err := binary.Read(br, binary.BigEndian, &expire); err != nil {
		return nil, ErrBadFormat
	}
	rec.Expire = int64(expire)
	if err := binary.Read(br, binary.BigEndian, &rec.HeaderLen); err != nil {
		return nil, ErrBadFormat
	}
	if err := binary.Read(br, binary.BigEndian, &rec.RuleUUID); err != nil {
		return nil, ErrBadFormat
	}

	var lens [7]uint32
	for i := range lens {
		if err := binary.Read(br, binary.BigEndian, &lens[i]); err != nil {
			return nil, ErrBadFormat
		}
	}
	if err := binary.Read(br, binary.BigEndian, &rec.ContentLength); err != nil {
		return nil, ErrBadFormat
	}
	chunked, err := br.ReadByte()
	if err != nil {
		return nil, ErrBadFormat
	}
	rec.Chunked = chunked != 0

	readField := func(n uint32) ([]byte, error) {
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, ErrBadFormat
		}
		return buf, nil
	}

	etag, err := readField(lens[0])
	if err != nil {
		return nil, err
	}
	lm, err := readField(lens[1])
	if err != nil {
		return nil, err
	}
	host, err := readField(lens[2])
	if err != nil {
		return nil, err
	}
	path, err := readField(lens[3])
	if err != nil {
		return nil, err
	}
	key, err := readField(lens[4])
	if err != nil {
		return nil, err
	}
	ctype, err := readField(lens[5])
	if err != nil {
		return nil, err
	}
	tenc, err := readField(lens[6])
	if err != nil {
		return nil, err
	}

	rec.ETag = string(etag)
	rec.LastModified = string(lm)
	rec.Host = string(host)
	rec.Path = string(path)
	rec.Key = key
	rec.ContentType = string(ctype)
	rec.TransferEncoding = string(tenc)

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, ErrBadFormat
	}
	rec.Body = body
	return rec, nil
}
