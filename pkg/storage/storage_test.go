package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appconfig "github.com/districtcms/backend/internal/config"
)

func testProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), appconfig.StorageConfig{
		Endpoint:  "https://nyc3.digitaloceanspaces.com",
		Region:    "nyc3",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Bucket:    "court-attachments",
	})
	require.NoError(t, err)
	return p
}

func TestAttachmentKeyShape(t *testing.T) {
	key := AttachmentKey("district9", 42, "motion.pdf")
	parts := strings.Split(key, "/")
	require.Len(t, parts, 5)
	require.Equal(t, "district9", parts[0])
	require.Equal(t, "docket", parts[1])
	require.Equal(t, "42", parts[2])
	require.Len(t, parts[3], 36) // uuid
	require.Equal(t, "motion.pdf", parts[4])
}

func TestAttachmentKeyIsUniquePerCall(t *testing.T) {
	require.NotEqual(t,
		AttachmentKey("district9", 42, "motion.pdf"),
		AttachmentKey("district9", 42, "motion.pdf"),
	)
}

func TestPresignUploadRequiresContentTypeAndSSEHeaders(t *testing.T) {
	p := testProvider(t)
	upload, err := p.PresignUpload(context.Background(), "district9/docket/42/uuid/motion.pdf", "application/pdf")
	require.NoError(t, err)
	require.Contains(t, upload.URL, "court-attachments")
	require.Contains(t, upload.URL, "motion.pdf")
	require.Equal(t, "application/pdf", upload.Headers["Content-Type"])
	require.Equal(t, ServerSideEncryption, upload.Headers["x-amz-server-side-encryption"])
	require.WithinDuration(t, time.Now().Add(UploadTTL), upload.ExpiresAt, 5*time.Second)
}

func TestPresignDownloadHasExpiryQueryParam(t *testing.T) {
	p := testProvider(t)
	url, err := p.PresignDownload(context.Background(), "district9/docket/42/uuid/motion.pdf")
	require.NoError(t, err)
	require.Contains(t, url, "X-Amz-Expires=900")
}
