package client

import (
	"context"
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

func TestFilesSearchFiles(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("file.search", searchEnvelope([]any{
		map[string]any{
			"id":   9,
			"type": "FILE",
			"phid": "PHID-FILE-9",
			"fields": map[string]any{
				"name": "screenshot.png",
				"size": 2048,
			},
		},
	}, ""))

	client := newTestClient(t, fake)

	result, err := client.Files().SearchFiles(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "screenshot.png", result.Data[0].Fields.Name)
	assert.Equal(t, int64(2048), result.Data[0].Fields.Size)
}

func TestFilesGetFileInfo(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.on("file.search", func(form url.Values) (any, string, string) {
		assert.Equal(t, "PHID-FILE-9", form.Get("constraints[phids][0]"))

		return searchEnvelope([]any{
			map[string]any{
				"id":   9,
				"type": "FILE",
				"phid": "PHID-FILE-9",
				"fields": map[string]any{
					"name": "screenshot.png",
					"size": 2048,
				},
			},
		}, ""), "", ""
	})

	client := newTestClient(t, fake)

	file, err := client.Files().GetFileInfo(context.Background(), "PHID-FILE-9")
	require.NoError(t, err)
	assert.Equal(t, "screenshot.png", file.Fields.Name)
}

func TestFilesGetFileInfoNotFound(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("file.search", searchEnvelope(nil, ""))

	client := newTestClient(t, fake)

	_, err := client.Files().GetFileInfo(context.Background(), "PHID-FILE-missing")
	require.Error(t, err)
	assert.True(t, conduit.IsNotFound(err))
}

func TestFilesDownload(t *testing.T) {
	t.Parallel()

	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}

	fake := newFakeConduit(t)
	fake.on("file.download", func(form url.Values) (any, string, string) {
		assert.Equal(t, "PHID-FILE-9", form.Get("phid"))

		return base64.StdEncoding.EncodeToString(payload), "", ""
	})

	client := newTestClient(t, fake)

	content, err := client.Files().Download(context.Background(), "PHID-FILE-9")
	require.NoError(t, err)
	assert.Equal(t, payload, content)
}

func TestFilesDownloadBypassesCache(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("file.download", base64.StdEncoding.EncodeToString([]byte("bytes")))

	client := newTestClient(t, fake)

	_, err := client.Files().Download(context.Background(), "PHID-FILE-9")
	require.NoError(t, err)

	_, err = client.Files().Download(context.Background(), "PHID-FILE-9")
	require.NoError(t, err)

	assert.Equal(t, 2, fake.callCount("file.download"))
}

func TestFilesDownloadRequiresPHID(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	client := newTestClient(t, fake)

	_, err := client.Files().Download(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, conduit.ErrorCodeValidation, conduit.CodeOf(err))
}

func TestFilesUpload(t *testing.T) {
	t.Parallel()

	payload := []byte("attachment body")

	fake := newFakeConduit(t)
	fake.on("file.upload", func(form url.Values) (any, string, string) {
		assert.Equal(t, "notes.txt", form.Get("name"))
		assert.Equal(t, "users", form.Get("viewPolicy"))

		decoded, err := base64.StdEncoding.DecodeString(form.Get("data_base64"))
		assert.NoError(t, err)
		assert.Equal(t, payload, decoded)

		return "PHID-FILE-new", "", ""
	})

	client := newTestClient(t, fake)

	phid, err := client.Files().Upload(context.Background(), "notes.txt", payload, "users")
	require.NoError(t, err)
	assert.Equal(t, conduit.PHID("PHID-FILE-new"), phid)
}

func TestFilesUploadRequiresData(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	client := newTestClient(t, fake)

	_, err := client.Files().Upload(context.Background(), "empty.txt", nil, "")
	require.Error(t, err)
	assert.Equal(t, conduit.ErrorCodeValidation, conduit.CodeOf(err))
}

func TestFilesUploadInvalidatesFileSearchCache(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("file.search", searchEnvelope(nil, ""))
	fake.result("file.upload", "PHID-FILE-new")

	client := newTestClient(t, fake)
	ctx := context.Background()

	_, err := client.Files().SearchFiles(ctx, nil)
	require.NoError(t, err)

	_, err = client.Files().Upload(ctx, "new.txt", []byte("x"), "")
	require.NoError(t, err)

	_, err = client.Files().SearchFiles(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.callCount("file.search"))
}
