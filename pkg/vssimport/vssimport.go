// Package vssimport implements the core-adjacent slice of the VSS text
// importer (spec §6.1): the line-oriented parse that turns a VSS file
// into a sequence of Define calls. The importer's own CLI and any
// VSS-specific schema validation beyond name/id mapping stay out of
// scope, matching the source's treatment of the importer as an external
// collaborator — this package supplies only the grammar spec §6.1 itself
// specifies.
package vssimport

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iamNilotpal/vsi-core/pkg/vsi"
)

// Import reads the VSS file at path and calls inst.Define once per signal
// line, using domain for every signal it defines. Lines beginning with
// '#' are comments. The first non-comment line with exactly one
// whitespace-separated token is the file's version string and is
// otherwise ignored. Every subsequent line has the form
// "NAME SIGNAL_ID [PRIVATE_ID]"; PRIVATE_ID defaults to 0.
//
// Returns the number of signals successfully defined.
func Import(inst *vsi.Instance, domain uint16, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return ImportReader(inst, domain, f)
}

// ImportReader is Import, taking an already-open reader — useful for
// tests and for callers that already have the file's contents in memory.
func ImportReader(inst *vsi.Instance, domain uint16, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)

	sawVersion := false
	count := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)

		if !sawVersion && len(fields) == 1 {
			sawVersion = true
			continue
		}

		if len(fields) < 2 || len(fields) > 3 {
			return count, fmt.Errorf("vss import: line %d: expected \"NAME SIGNAL_ID [PRIVATE_ID]\", got %q", lineNo, line)
		}

		name := fields[0]
		signalID, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return count, fmt.Errorf("vss import: line %d: invalid signal id %q: %w", lineNo, fields[1], err)
		}

		var privateID uint64
		if len(fields) == 3 {
			privateID, err = strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				return count, fmt.Errorf("vss import: line %d: invalid private id %q: %w", lineNo, fields[2], err)
			}
		}

		if err := inst.Define(domain, uint32(signalID), name, uint32(privateID)); err != nil {
			return count, fmt.Errorf("vss import: line %d: define %q: %w", lineNo, name, err)
		}
		count++
	}

	if err := scanner.Err(); err != nil {
		return count, err
	}
	return count, nil
}
