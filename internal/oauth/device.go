package oauth

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// deviceCodeTTL bounds how long an initiated device grant stays pollable
// before the scheduler's sweep reclaims it.
const deviceCodeTTL = 15 * time.Minute

// PollIntervalSeconds is the interval clients are told to poll at.
const PollIntervalSeconds = 5

// userCodeAlphabet excludes characters easy to confuse when read aloud or
// typed: 0/O, 1/I/L.
const userCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DeviceService implements the RFC 8628-shaped device authorization flow.
type DeviceService struct {
	db repository.DBTX
}

// NewDeviceService builds a DeviceService.
func NewDeviceService(db repository.DBTX) *DeviceService {
	return &DeviceService{db: db}
}

// Initiate creates a new pending device authorization.
func (d *DeviceService) Initiate(ctx context.Context) (models.DeviceAuthorization, error) {
	deviceCode := uuid.NewString()
	userCode, err := randomUserCode()
	if err != nil {
		return models.DeviceAuthorization{}, apperr.Wrap(apperr.KindInternalError, "failed to generate user code", err)
	}
	return repository.CreateDeviceAuthorization(ctx, d.db, deviceCode, userCode, time.Now().Add(deviceCodeTTL))
}

// Poll reports a device_code's current status. A caller sees "expired" only
// transiently between a grant's expiry and the scheduler's next sweep;
// after the sweep the row is gone and Poll returns NotFound.
func (d *DeviceService) Poll(ctx context.Context, deviceCode string) (models.DeviceAuthorizationStatus, error) {
	auth, err := repository.GetDeviceAuthorizationByCode(ctx, d.db, deviceCode)
	if err != nil {
		return "", err
	}
	if auth.Status == models.DeviceAuthorizationPending && time.Now().After(auth.ExpiresAt) {
		return models.DeviceAuthorizationExpired, nil
	}
	return auth.Status, nil
}

// Approve grants a pending device authorization to userID — the
// browser-side step where a signed-in user types the code shown on their
// device.
func (d *DeviceService) Approve(ctx context.Context, userCode string, userID int64) (models.DeviceAuthorization, error) {
	return repository.ApproveDeviceAuthorization(ctx, d.db, strings.ToUpper(userCode), userID)
}

// Deny is Approve's rejection twin.
func (d *DeviceService) Deny(ctx context.Context, userCode string) (models.DeviceAuthorization, error) {
	return repository.DenyDeviceAuthorization(ctx, d.db, strings.ToUpper(userCode))
}

// randomUserCode generates an 8-character code grouped as XXXX-XXXX, the
// shape a person reasonably types by hand.
func randomUserCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, v := range b {
		if i == 4 {
			sb.WriteByte('-')
		}
		sb.WriteByte(userCodeAlphabet[int(v)%len(userCodeAlphabet)])
	}
	return sb.String(), nil
}
