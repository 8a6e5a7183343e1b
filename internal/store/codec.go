package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/deps"
	"github.com/xenodium/rtags/internal/index"
)

// Binary record layout: big-endian fixed-width integers, strings as a u32
// length followed by raw bytes, sets written in sorted order so identical
// inputs always serialize to identical bytes.

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) i64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	e.buf.Write(b[:])
}

func (e *encoder) boolean(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) strs(ss []string) {
	e.u32(uint32(len(ss)))
	for _, s := range ss {
		e.str(s)
	}
}

func (e *encoder) key(k cursor.Key) {
	e.u32(uint32(k.Kind))
	e.str(k.File)
	e.str(k.Symbol)
	e.u32(k.Line)
	e.u32(k.Col)
	e.u32(k.Off)
	e.boolean(k.Def)
}

func (e *encoder) data(d index.Data) {
	e.key(d.Key)
	e.strs(d.Parents)
}

func (e *encoder) entity(ent *index.Entity) {
	e.boolean(ent.HasDefinition)
	e.data(ent.Cursor)
	e.data(ent.Ref)
	e.strs(ent.SortedRefs())
}

type decoder struct {
	b []byte
}

func (d *decoder) u32() (uint32, error) {
	if len(d.b) < 4 {
		return 0, fmt.Errorf("store: truncated record")
	}
	v := binary.BigEndian.Uint32(d.b)
	d.b = d.b[4:]
	return v, nil
}

func (d *decoder) i64() (int64, error) {
	if len(d.b) < 8 {
		return 0, fmt.Errorf("store: truncated record")
	}
	v := int64(binary.BigEndian.Uint64(d.b))
	d.b = d.b[8:]
	return v, nil
}

func (d *decoder) boolean() (bool, error) {
	if len(d.b) < 1 {
		return false, fmt.Errorf("store: truncated record")
	}
	v := d.b[0] != 0
	d.b = d.b[1:]
	return v, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	if uint32(len(d.b)) < n {
		return "", fmt.Errorf("store: truncated record")
	}
	s := string(d.b[:n])
	d.b = d.b[n:]
	return s, nil
}

func (d *decoder) strs() ([]string, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	var out []string
	for range n {
		s, err := d.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) key() (cursor.Key, error) {
	var k cursor.Key
	kind, err := d.u32()
	if err != nil {
		return k, err
	}
	k.Kind = cursor.Kind(kind)
	if k.File, err = d.str(); err != nil {
		return k, err
	}
	if k.Symbol, err = d.str(); err != nil {
		return k, err
	}
	if k.Line, err = d.u32(); err != nil {
		return k, err
	}
	if k.Col, err = d.u32(); err != nil {
		return k, err
	}
	if k.Off, err = d.u32(); err != nil {
		return k, err
	}
	if k.Def, err = d.boolean(); err != nil {
		return k, err
	}
	return k, nil
}

func (d *decoder) data() (index.Data, error) {
	key, err := d.key()
	if err != nil {
		return index.Data{}, err
	}
	parents, err := d.strs()
	if err != nil {
		return index.Data{}, err
	}
	return index.Data{Key: key, Parents: parents}, nil
}

func (d *decoder) entity() (*index.Entity, error) {
	ent := &index.Entity{}
	var err error
	if ent.HasDefinition, err = d.boolean(); err != nil {
		return nil, err
	}
	if ent.Cursor, err = d.data(); err != nil {
		return nil, err
	}
	if ent.Ref, err = d.data(); err != nil {
		return nil, err
	}
	refs, err := d.strs()
	if err != nil {
		return nil, err
	}
	for _, loc := range refs {
		ent.AddRef(loc)
	}
	return ent, nil
}

// encodeRefValue serializes the per-entity record: the reference's location
// string plus the sorted inbound reference set.
func encodeRefValue(ent *index.Entity) []byte {
	var e encoder
	e.str(ent.Ref.Key.LocationString())
	e.strs(ent.SortedRefs())
	return e.buf.Bytes()
}

func decodeRefValue(b []byte) (target string, refs []string, err error) {
	d := decoder{b: b}
	if target, err = d.str(); err != nil {
		return "", nil, err
	}
	if refs, err = d.strs(); err != nil {
		return "", nil, err
	}
	return target, refs, nil
}

// encodeDictValue serializes one dictionary row: each location string in
// sorted order, NUL-terminated.
func encodeDictValue(locs map[string]struct{}) []byte {
	sorted := make([]string, 0, len(locs))
	for loc := range locs {
		sorted = append(sorted, loc)
	}
	sort.Strings(sorted)
	var buf bytes.Buffer
	for _, loc := range sorted {
		buf.WriteString(loc)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func decodeDictValue(b []byte) []string {
	var out []string
	for len(b) > 0 {
		i := bytes.IndexByte(b, 0)
		if i < 0 {
			out = append(out, string(b))
			break
		}
		out = append(out, string(b[:i]))
		b = b[i+1:]
	}
	return out
}

func encodeDepsValue(rec deps.Record) []byte {
	var e encoder
	e.strs(rec.Args)
	e.i64(rec.LastModified)
	paths := make([]string, 0, len(rec.Includes))
	for p := range rec.Includes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	e.u32(uint32(len(paths)))
	for _, p := range paths {
		e.str(p)
		e.i64(rec.Includes[p])
	}
	return e.buf.Bytes()
}

func decodeDepsValue(file string, b []byte) (deps.Record, error) {
	rec := deps.Record{File: file, Includes: make(map[string]int64)}
	d := decoder{b: b}
	var err error
	if rec.Args, err = d.strs(); err != nil {
		return rec, err
	}
	if rec.LastModified, err = d.i64(); err != nil {
		return rec, err
	}
	n, err := d.u32()
	if err != nil {
		return rec, err
	}
	for range n {
		p, err := d.str()
		if err != nil {
			return rec, err
		}
		m, err := d.i64()
		if err != nil {
			return rec, err
		}
		rec.Includes[p] = m
	}
	return rec, nil
}

// encodeEntitySet serializes the full entry set as a size-prefixed blob.
func encodeEntitySet(entities []*index.Entity) []byte {
	var e encoder
	e.u32(uint32(len(entities)))
	for _, ent := range entities {
		e.entity(ent)
	}
	return e.buf.Bytes()
}

func decodeEntitySet(b []byte) ([]*index.Entity, error) {
	d := decoder{b: b}
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	// The count comes from disk; cap the preallocation by what the blob
	// could possibly hold (an entity never encodes below 63 bytes) so a
	// corrupt count fails on decode instead of forcing a huge allocation.
	capacity := int(n)
	if limit := len(d.b) / 63; capacity > limit {
		capacity = limit
	}
	entities := make([]*index.Entity, 0, capacity)
	for range n {
		ent, err := d.entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, ent)
	}
	return entities, nil
}
