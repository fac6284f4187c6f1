package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsLaunchable(t *testing.T) {
	launchable := map[Status]bool{
		StatusReady:   true,
		StatusSuccess: true,
		StatusError:   true,
	}

	for _, s := range AllStatuses {
		t.Run(s.String(), func(t *testing.T) {
			assert.Equal(t, launchable[s], s.IsLaunchable())
		})
	}

	assert.False(t, Status("").IsLaunchable())
	assert.False(t, Status("UNKNOWN").IsLaunchable())
}

func TestStatus_IsReady(t *testing.T) {
	for _, s := range AllStatuses {
		assert.Equal(t, s == StatusReady, s.IsReady(), "status %s", s)
	}
}

func TestProcessFile_Key(t *testing.T) {
	now := time.Now()
	a := ProcessFile{FilePath: "/CRAC", FileType: "CRAC", Filename: "crac.xml", DocumentID: "doc-1", LastModificationDate: &now}
	b := ProcessFile{FilePath: "/CRAC", FileType: "CRAC", Filename: "crac.xml", ProcessFileStatus: "VALIDATED"}
	c := ProcessFile{FilePath: "/CRAC", FileType: "CRAC", Filename: "crac-v2.xml"}

	assert.Equal(t, a.Key(), b.Key(), "informational fields must not affect identity")
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestSnapshot_DecodeTaskManagerJSON(t *testing.T) {
	raw := `{
		"id": "1fdda469-53e9-4d63-a533-b935cffdd2f6",
		"timestamp": "2025-10-02T14:30:00Z",
		"status": "READY",
		"inputs": [
			{"filePath": "/CNEC-RAM", "fileType": "CNEC-RAM", "processFileStatus": "VALIDATED", "filename": "cnec-ram"}
		],
		"runHistory": [
			{"id": "run-1", "executionDate": "2025-10-02T12:00:00Z", "inputs": []}
		]
	}`

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))

	assert.Equal(t, "1fdda469-53e9-4d63-a533-b935cffdd2f6", snap.ID)
	assert.Equal(t, StatusReady, snap.Status)
	require.Len(t, snap.Inputs, 1)
	assert.Equal(t, "CNEC-RAM", snap.Inputs[0].FileType)
	require.Len(t, snap.RunHistory, 1)
	assert.Equal(t, "run-1", snap.RunHistory[0].ID)
	assert.Equal(t, "2025-10-02T14:30:00Z", snap.TimestampString())
}

func TestSnapshot_TimestampStringNil(t *testing.T) {
	var snap *Snapshot
	assert.Equal(t, "", snap.TimestampString())
}
