package vssimport

import (
	"context"
	"strings"
	"testing"

	"github.com/iamNilotpal/vsi-core/pkg/options"
	"github.com/iamNilotpal/vsi-core/pkg/vsi"
	"github.com/stretchr/testify/require"
)

func newTestInstance(t *testing.T) *vsi.Instance {
	t.Helper()
	dir := t.TempDir()

	inst, err := vsi.New(
		context.Background(),
		"vssimport-test",
		options.WithSegmentDir(dir),
		options.WithUserSegmentSize(options.MinUserSegmentSize),
		options.WithSystemSegmentSize(options.MinSystemSegmentSize),
	)
	require.NoError(t, err)
	t.Cleanup(func() { inst.Close() })
	return inst
}

const sampleVSS = `4.0
# comment line, should be skipped

vehicle.speed 1
vehicle.rpm 2 500
vehicle.fuel.level 3
`

func TestImportReaderDefinesEverySignal(t *testing.T) {
	inst := newTestInstance(t)

	n, err := ImportReader(inst, 1, strings.NewReader(sampleVSS))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	id, err := inst.NameToID(1, "vehicle.speed")
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	id, err = inst.PrivateIDToID(1, 500)
	require.NoError(t, err)
	require.EqualValues(t, 2, id)
}

func TestImportReaderRejectsMalformedLine(t *testing.T) {
	inst := newTestInstance(t)

	_, err := ImportReader(inst, 1, strings.NewReader("4.0\nonly one two three four\n"))
	require.Error(t, err)
}

func TestImportReaderRejectsNonNumericSignalID(t *testing.T) {
	inst := newTestInstance(t)

	_, err := ImportReader(inst, 1, strings.NewReader("4.0\nvehicle.speed notanumber\n"))
	require.Error(t, err)
}

func TestImportReaderStopsCountAtFirstFailure(t *testing.T) {
	inst := newTestInstance(t)

	n, err := ImportReader(inst, 1, strings.NewReader("4.0\nvehicle.speed 1\nvehicle.speed 1\n"))
	require.Error(t, err, "redefining the same signal id should fail")
	require.Equal(t, 1, n, "the count should reflect only the signals defined before the failure")
}
