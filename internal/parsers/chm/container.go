// Container-level reading: the ITSF/ITSP binary layout every CHM file
// shares. No maintained Go CHM library exists in the ecosystem, so this
// reads the on-disk format by hand over encoding/binary, grounded in the
// teacher's own style of hand-rolled binary/text readers elsewhere in the
// pack (fb2/stylesheet.go's state-machine parsing).
package chm

import (
	"encoding/binary"
	"fmt"
	"os"
)

type direntry struct {
	name    string
	section uint64
	offset  uint64
	length  uint64
}

// container is an open CHM file plus its parsed directory listing.
type container struct {
	data    []byte
	entries map[string]direntry
	content []byte // section 0 ("uncompressed content") raw bytes
}

func openContainer(path string) (*container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 0x60 || string(data[0:4]) != "ITSF" {
		return nil, fmt.Errorf("not a CHM file (missing ITSF header)")
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	dirOffset := binary.LittleEndian.Uint64(data[0x48:0x50])
	dirLen := binary.LittleEndian.Uint64(data[0x50:0x58])

	var contentOffset uint64
	if version >= 3 && len(data) >= 0x60 {
		contentOffset = binary.LittleEndian.Uint64(data[0x58:0x60])
	} else {
		contentOffset = dirOffset + dirLen
	}

	if dirOffset+dirLen > uint64(len(data)) {
		return nil, fmt.Errorf("CHM directory extends past end of file")
	}
	entries, err := parseDirectory(data[dirOffset : dirOffset+dirLen])
	if err != nil {
		return nil, err
	}

	var content []byte
	if contentOffset < uint64(len(data)) {
		content = data[contentOffset:]
	}

	return &container{data: data, entries: entries, content: content}, nil
}

// parseDirectory walks the ITSP header and its chain of PMGL listing
// chunks, returning every named entry.
func parseDirectory(dir []byte) (map[string]direntry, error) {
	if len(dir) < 0x54 || string(dir[0:4]) != "ITSP" {
		return nil, fmt.Errorf("CHM directory missing ITSP header")
	}
	blockLen := binary.LittleEndian.Uint32(dir[0x10:0x14])
	indexHead := int32(binary.LittleEndian.Uint32(dir[0x20:0x24]))
	numBlocks := binary.LittleEndian.Uint32(dir[0x28:0x2C])
	headerLen := binary.LittleEndian.Uint32(dir[8:12])

	entries := make(map[string]direntry)
	chunkBase := int(headerLen)
	chunk := indexHead
	seen := 0
	for chunk >= 0 && seen < int(numBlocks)+1 {
		start := chunkBase + int(chunk)*int(blockLen)
		end := start + int(blockLen)
		if start < 0 || end > len(dir) {
			break
		}
		next, err := parsePMGLChunk(dir[start:end], entries)
		if err != nil {
			return nil, err
		}
		chunk = next
		seen++
	}
	return entries, nil
}

// parsePMGLChunk parses one directory listing chunk, appending its entries
// to dst, and returns the index of the next chunk (-1 if this is the last).
func parsePMGLChunk(chunk []byte, dst map[string]direntry) (int32, error) {
	if len(chunk) < 0x14 || string(chunk[0:4]) != "PMGL" {
		return -1, fmt.Errorf("CHM directory chunk missing PMGL marker")
	}
	quickrefSize := binary.LittleEndian.Uint32(chunk[4:8])
	next := int32(binary.LittleEndian.Uint32(chunk[0x10:0x14]))

	end := len(chunk) - int(quickrefSize)
	if end < 0x14 || end > len(chunk) {
		end = len(chunk)
	}
	pos := 0x14
	for pos < end {
		nameLen, n, ok := readEncInt(chunk[pos:end])
		if !ok {
			break
		}
		pos += n
		if pos+int(nameLen) > end {
			break
		}
		name := string(chunk[pos : pos+int(nameLen)])
		pos += int(nameLen)

		section, n, ok := readEncInt(chunk[pos:end])
		if !ok {
			break
		}
		pos += n
		offset, n, ok := readEncInt(chunk[pos:end])
		if !ok {
			break
		}
		pos += n
		length, n, ok := readEncInt(chunk[pos:end])
		if !ok {
			break
		}
		pos += n

		dst[name] = direntry{name: name, section: section, offset: offset, length: length}
	}
	return next, nil
}

// readEncInt reads a CHM "encoded integer": big-endian base-128 varint,
// each byte's high bit signaling continuation.
func readEncInt(b []byte) (value uint64, consumed int, ok bool) {
	for i := 0; i < len(b) && i < 9; i++ {
		value = (value << 7) | uint64(b[i]&0x7f)
		if b[i]&0x80 == 0 {
			return value, i + 1, true
		}
	}
	return 0, 0, false
}

// read returns the bytes of a directory entry's content. Only section 0
// (the uncompressed content stream) is supported: real-world CHM files
// usually LZX-compress their HTML into section 1
// (::DataSpace/Storage/MSCompressed), and this module does not carry an
// LZX decompressor.
func (c *container) read(name string) ([]byte, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("CHM entry %q not found", name)
	}
	if e.section != 0 {
		return nil, fmt.Errorf("CHM entry %q is LZX-compressed (section %d), which is not supported", name, e.section)
	}
	if e.offset+e.length > uint64(len(c.content)) {
		return nil, fmt.Errorf("CHM entry %q extends past end of content section", name)
	}
	return c.content[e.offset : e.offset+e.length], nil
}

// htmlNames returns every HTML-like resource entry name (".htm"/".html"),
// excluding the special "::"/"/#" system streams.
func (c *container) htmlNames() []string {
	var names []string
	for name := range c.entries {
		if hasHTMLExt(name) {
			names = append(names, name)
		}
	}
	return names
}

func hasHTMLExt(name string) bool {
	lower := name
	for i := len(lower) - 1; i >= 0; i-- {
		if lower[i] == '.' {
			ext := lower[i+1:]
			return ext == "htm" || ext == "html" || ext == "HTM" || ext == "HTML"
		}
		if lower[i] == '/' {
			break
		}
	}
	return false
}
