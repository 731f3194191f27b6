// wiredump prints the field structure of protobuf wire bytes without a
// schema, in the spirit of protoc --decode_raw.
//
// Usage:
//
//	wiredump 089601420774657374696e67
//	cat payload.bin | wiredump
//
// A hex string argument is decoded and dumped. With no argument, stdin is
// read in full; input that trims to a hex string is decoded first, anything
// else is treated as raw wire bytes.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wirelite/wirelite/wire"
)

func main() {
	data, err := readInput()
	if err != nil {
		log.Fatalf("wiredump: %v", err)
	}
	if len(data) == 0 {
		log.Fatal("wiredump: empty input")
	}

	if err := dump(os.Stdout, data, 0); err != nil {
		log.Fatalf("wiredump: %v", err)
	}
}

func readInput() ([]byte, error) {
	if len(os.Args) > 1 {
		return hex.DecodeString(strings.TrimSpace(os.Args[1]))
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if decoded, err := hex.DecodeString(trimmed); err == nil && len(decoded) > 0 {
		return decoded, nil
	}
	return raw, nil
}

// dump walks the fields of data and prints one line per field. Bytes fields
// that parse cleanly as messages print as nested blocks. The guess can be
// wrong for byte strings that happen to form valid fields; without a schema
// there is no way to tell, the usual decode_raw caveat.
func dump(w io.Writer, data []byte, depth int) error {
	indent := strings.Repeat("  ", depth)
	d := wire.NewDecoder(data)

	for {
		v, err := d.DecodeField()
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}

		switch v.WireType {
		case wire.WireVarint:
			fmt.Fprintf(w, "%s%d: %d\n", indent, v.FieldNumber, v.Data)
		case wire.WireFixed64:
			fmt.Fprintf(w, "%s%d: %d (fixed64, 0x%016x)\n", indent, v.FieldNumber, v.Data, v.Data)
		case wire.WireFixed32:
			fmt.Fprintf(w, "%s%d: %d (fixed32, 0x%08x)\n", indent, v.FieldNumber, v.Data, v.Data)
		case wire.WireBytes:
			payload := v.Data.([]byte)
			switch {
			case looksLikeMessage(payload):
				fmt.Fprintf(w, "%s%d: {\n", indent, v.FieldNumber)
				if err := dump(w, payload, depth+1); err != nil {
					return err
				}
				fmt.Fprintf(w, "%s}\n", indent)
			case printable(payload):
				fmt.Fprintf(w, "%s%d: %q\n", indent, v.FieldNumber, payload)
			default:
				fmt.Fprintf(w, "%s%d: %s (%d bytes)\n", indent, v.FieldNumber, hex.EncodeToString(payload), len(payload))
			}
		}
	}
}

// looksLikeMessage reports whether data parses completely as wire fields.
func looksLikeMessage(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	d := wire.NewDecoder(data)
	for {
		v, err := d.DecodeField()
		if err != nil {
			return false
		}
		if v == nil {
			return true
		}
	}
}

func printable(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, r := range string(data) {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
