// Package models holds the domain types shared across the backend: the
// tenant-scoped rows every repository, handler, and rule evaluates over.
package models

import "time"

// Role is a per-court membership role.
type Role string

const (
	RoleAttorney Role = "attorney"
	RoleClerk    Role = "clerk"
	RoleJudge    Role = "judge"
	RoleAdmin    Role = "admin"
)

// roleRank orders roles on the minimum-role ladder the event pipeline and
// membership engine gate against: attorney <= clerk <= judge <= admin.
var roleRank = map[Role]int{
	RoleAttorney: 0,
	RoleClerk:    1,
	RoleJudge:    2,
	RoleAdmin:    3,
}

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r is ranked at or above min on the role ladder.
// An invalid role is never at least anything.
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	mr, ok := roleRank[min]
	if !ok {
		return false
	}
	return rr >= mr
}

// CourtID is an opaque tenant identifier, e.g. "sdny", "district9".
type CourtID string

// User is a backend identity. CourtRoles maps a court id to the role the
// user holds in that court; GlobalRole supports admin bootstrapping outside
// any single court.
type User struct {
	ID              int64
	Username        string
	Email           string
	PasswordHash    string
	OAuthProvider   string
	OAuthProviderID string
	DisplayName     string
	AvatarURL       string
	EmailVerified   bool
	PhoneVerified   bool
	CourtRoles      map[CourtID]Role
	GlobalRole      Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CourtTier drives feature flags and billing.
type CourtTier string

const (
	TierFree CourtTier = "free"
)

// Court is a tenant.
type Court struct {
	ID        CourtID
	Name      string
	Tier      CourtTier
	CreatedAt time.Time
}

// RoleRequestStatus is the state of a court role request.
type RoleRequestStatus string

const (
	RoleRequestPending  RoleRequestStatus = "pending"
	RoleRequestApproved RoleRequestStatus = "approved"
	RoleRequestDenied   RoleRequestStatus = "denied"
)

// CourtRoleRequest tracks a user's request to hold a role in a court. At
// most one pending request may exist per (user, court).
type CourtRoleRequest struct {
	ID            int64
	UserID        int64
	CourtID       CourtID
	RequestedRole Role
	Status        RoleRequestStatus
	ReviewerID    *int64
	Notes         string
	CreatedAt     time.Time
	DecidedAt     *time.Time
}

// CaseKind distinguishes criminal from civil matters. This backend stores
// both kinds in one physical table discriminated by CaseKind; the
// uniqueness and lifecycle rules are identical either way.
type CaseKind string

const (
	CaseKindCriminal CaseKind = "cr"
	CaseKindCivil    CaseKind = "cv"
)

// CaseStatus is the lifecycle status of a case.
type CaseStatus string

const (
	CaseStatusOpen     CaseStatus = "open"
	CaseStatusClosed   CaseStatus = "closed"
	CaseStatusDismissed CaseStatus = "dismissed"
)

// Case is a criminal or civil matter.
type Case struct {
	ID         int64
	CourtID    CourtID
	Kind       CaseKind
	CaseNumber string
	Division   string
	Title      string
	Status     CaseStatus
	Priority   int
	OpenedAt   time.Time

	// Criminal-only fields, zero-valued for civil cases.
	ArrestDate      *time.Time
	IndictmentDate  *time.Time
	ArraignmentDate *time.Time
}

// DocketEntry is a numbered event on a case's docket. Entries are
// append-only: entry numbers form a gapless monotonic sequence per case.
type DocketEntry struct {
	ID             int64
	CourtID        CourtID
	CaseID         int64
	EntryNumber    int
	DateFiled      time.Time
	EntryType      string
	Description    string
	FiledBy        *int64
	DocumentID     *int64
	IsSealed       bool
	IsExParte      bool
	PageCount      *int
	RelatedEntries []int64
	ServiceList    []int64
}

// Document is either active or stricken: never both active and pointing at
// a replacement.
type Document struct {
	ID                   int64
	CourtID              CourtID
	CaseID               int64
	Title                string
	DocumentType         string
	StorageKey           string
	FileSize             int64
	ContentType          string
	Checksum             string
	CreatedAt            time.Time
	IsStricken           bool
	ReplacedByDocumentID *int64
	SourceAttachmentID   *int64
}

// IsActive reports whether d is neither stricken nor replaced.
func (d *Document) IsActive() bool {
	return !d.IsStricken && d.ReplacedByDocumentID == nil
}

// DocketAttachment is a file uploaded under a docket entry before promotion
// to a canonical Document. UploadedAt is nil while the presign is
// outstanding.
type DocketAttachment struct {
	ID            int64
	CourtID       CourtID
	DocketEntryID int64
	Filename      string
	StorageKey    string
	ContentType   string
	FileSize      int64
	SHA256        string
	UploadedAt    *time.Time
}

// Filing is the record of an electronic submission that atomically created
// a Document, a DocketEntry, and an NEF.
type Filing struct {
	ID            int64
	CourtID       CourtID
	CaseID        int64
	DocumentID    int64
	DocketEntryID int64
	FiledByUserID int64
	CreatedAt     time.Time
}

// ServiceMethod is a closed set of service methods driving deadline math.
type ServiceMethod string

const (
	ServiceElectronic       ServiceMethod = "electronic"
	ServicePersonalDelivery ServiceMethod = "personal_delivery"
	ServiceMail             ServiceMethod = "mail"
	ServiceLeaveWithClerk   ServiceMethod = "leave_with_clerk"
	ServiceOther            ServiceMethod = "other"
)

// AdditionalDays returns the FRCP 6(d) extra days a service method adds.
func (m ServiceMethod) AdditionalDays() int {
	switch m {
	case ServiceElectronic, ServicePersonalDelivery:
		return 0
	default:
		return 3
	}
}

// ServiceRecord tracks service of a document on a party.
type ServiceRecord struct {
	ID            int64
	CourtID       CourtID
	DocumentID    int64
	PartyID       int64
	ServiceMethod ServiceMethod
	SentAt        time.Time
	CompletedAt   *time.Time
}

// NEF is an immutable Notice of Electronic Filing.
type NEF struct {
	ID            int64
	CourtID       CourtID
	FilingID      int64
	DocketEntryID int64
	DocumentID    int64
	CreatedAt     time.Time
}

// QueueType selects which step pipeline a queue item follows.
type QueueType string

const (
	QueueFiling        QueueType = "filing"
	QueueMotion        QueueType = "motion"
	QueueOrder         QueueType = "order"
	QueueDeadlineAlert QueueType = "deadline_alert"
	QueueGeneral       QueueType = "general"
)

// QueueStatus is the lifecycle status of a queue item.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusInReview   QueueStatus = "in_review"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusRejected   QueueStatus = "rejected"
)

// QueueItem is a row on the clerk work queue.
type QueueItem struct {
	ID           int64
	CourtID      CourtID
	QueueType    QueueType
	Priority     int
	Status       QueueStatus
	Title        string
	SourceType   string
	SourceID     int64
	CaseID       *int64
	AssignedTo   *int64
	SubmittedBy  *int64
	CurrentStep  string
	Metadata     map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// RuleSource categorizes where a rule comes from for priority resolution.
type RuleSource string

const (
	RuleSourceStatutory     RuleSource = "statutory"
	RuleSourceFederalRule   RuleSource = "federal_rule"
	RuleSourceAdministrative RuleSource = "administrative"
	RuleSourceLocal         RuleSource = "local"
	RuleSourceStandingOrder RuleSource = "standing_order"
)

// PriorityWeight returns the priority weight for a rule source (higher
// number means higher precedence).
func (s RuleSource) PriorityWeight() int {
	switch s {
	case RuleSourceStatutory:
		return 10
	case RuleSourceFederalRule:
		return 20
	case RuleSourceAdministrative:
		return 30
	case RuleSourceLocal:
		return 40
	case RuleSourceStandingOrder:
		return 50
	default:
		return 1000
	}
}

// RuleStatus is the lifecycle status of a rule.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusInactive RuleStatus = "inactive"
)

// Rule is a stored compliance/workflow rule evaluated by internal/rules.
type Rule struct {
	ID             int64
	CourtID        CourtID
	Name           string
	Source         RuleSource
	Category       string
	Priority       int
	Status         RuleStatus
	JurisdictionID string
	Citation       string
	EffectiveDate  *time.Time
	Conditions     []byte // raw JSON, parsed by internal/rules
	Actions        []byte // raw JSON, parsed by internal/rules
	Triggers       []string
}

// SpeedyTrialClock tracks the 18 U.S.C. §3161 clock for a criminal case.
type SpeedyTrialClock struct {
	ID              int64
	CourtID         CourtID
	CaseID          int64
	ArrestDate      *time.Time
	IndictmentDate  *time.Time
	ArraignmentDate *time.Time
	Deadline        *time.Time
	ElapsedDays     int
	RemainingDays   int
	Tolled          bool
	Waived          bool
}

// ExcludableDelay is a tolling period linked to a speedy-trial clock.
type ExcludableDelay struct {
	ID        int64
	ClockID   int64
	Reason    string
	StartDate time.Time
	EndDate   *time.Time
}

// CourtBarAdmission links a user to a bar number within a court, consulted
// optionally when granting the attorney role.
type CourtBarAdmission struct {
	UserID      int64
	CourtID     CourtID
	BarNumber   string
	AdmittedAt  time.Time
}

// RefreshToken is an opaque row keyed by the SHA-256 hex of the raw token.
// Presence in the store implies not-yet-revoked and not-yet-expired; raw
// tokens are never stored.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// DeviceAuthorizationStatus is the lifecycle of an RFC 8628 device grant.
type DeviceAuthorizationStatus string

const (
	DeviceAuthorizationPending  DeviceAuthorizationStatus = "pending"
	DeviceAuthorizationApproved DeviceAuthorizationStatus = "approved"
	DeviceAuthorizationDenied   DeviceAuthorizationStatus = "denied"
	DeviceAuthorizationExpired  DeviceAuthorizationStatus = "expired"
)

// DeviceAuthorization tracks one device-flow grant from initiate through
// poll and browser-side approval.
type DeviceAuthorization struct {
	ID        int64
	DeviceCode string
	UserCode   string
	Status     DeviceAuthorizationStatus
	UserID     *int64
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
