package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Artifact describes a submitted note in a transport-friendly format.
type Artifact struct {
	ID            string `json:"id"`
	OrgID         string `json:"orgId"`
	CoachID       string `json:"coachId"`
	SourceChannel string `json:"sourceChannel"`
	MediaKind     string `json:"mediaKind"`
	Status        string `json:"status"`
	Attempts      int    `json:"attempts"`
	ResumeStatus  string `json:"resumeStatus,omitempty"`
	Halted        bool   `json:"halted"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	Transcript    string `json:"transcript,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// Mention is one resolved or unresolved roster mention.
type Mention struct {
	Mention     string      `json:"mention"`
	Kind        string      `json:"kind,omitempty"`
	Outcome     string      `json:"outcome"`
	RefID       string      `json:"refId,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	Confidence  float64     `json:"confidence"`
	Candidates  []Candidate `json:"candidates,omitempty"`
}

// Candidate is a roster record offered for disambiguation.
type Candidate struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Claim is an extracted statement with its resolution outcome.
type Claim struct {
	ID                   string    `json:"id"`
	Sequence             int       `json:"sequence"`
	Topic                string    `json:"topic"`
	Title                string    `json:"title"`
	Snippet              string    `json:"snippet"`
	Severity             string    `json:"severity,omitempty"`
	Sentiment            string    `json:"sentiment,omitempty"`
	PlayerID             string    `json:"playerId,omitempty"`
	TeamID               string    `json:"teamId,omitempty"`
	AssigneeID           string    `json:"assigneeId,omitempty"`
	ExtractionConfidence float64   `json:"extractionConfidence"`
	ResolutionConfidence float64   `json:"resolutionConfidence"`
	Status               string    `json:"status"`
	StatusReason         string    `json:"statusReason,omitempty"`
	Mentions             []Mention `json:"mentions,omitempty"`
}

// Draft is a proposed insight awaiting coach review.
type Draft struct {
	ID                   string  `json:"id"`
	ArtifactID           string  `json:"artifactId"`
	ClaimID              string  `json:"claimId"`
	PlayerID             string  `json:"playerId,omitempty"`
	PlayerName           string  `json:"playerName,omitempty"`
	TeamID               string  `json:"teamId,omitempty"`
	InsightType          string  `json:"insightType"`
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	EvidenceSnippet      string  `json:"evidenceSnippet"`
	EvidenceOffsetMS     *int64  `json:"evidenceOffsetMs,omitempty"`
	DisplayOrder         int     `json:"displayOrder"`
	ExtractionConfidence float64 `json:"extractionConfidence"`
	ResolutionConfidence float64 `json:"resolutionConfidence"`
	OverallConfidence    float64 `json:"overallConfidence"`
	RequiresConfirmation bool    `json:"requiresConfirmation"`
	Status               string  `json:"status"`
	CreatedAt            string  `json:"createdAt,omitempty"`
	ConfirmedAt          string  `json:"confirmedAt,omitempty"`
	AppliedAt            string  `json:"appliedAt,omitempty"`
}

// Insight is a permanent record written from an applied draft.
type Insight struct {
	ID                string  `json:"id"`
	PlayerID          string  `json:"playerId,omitempty"`
	TeamID            string  `json:"teamId,omitempty"`
	Category          string  `json:"category"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	RecommendedAction string  `json:"recommendedAction,omitempty"`
	Severity          string  `json:"severity,omitempty"`
	SourceArtifactID  string  `json:"sourceArtifactId"`
	DraftID           string  `json:"draftId"`
	Confidence        float64 `json:"confidence"`
	CreatedAt         string  `json:"createdAt,omitempty"`
}

// ArtifactDetail is an artifact with everything derived from it.
type ArtifactDetail struct {
	Artifact Artifact `json:"artifact"`
	Claims   []Claim  `json:"claims"`
	Drafts   []Draft  `json:"drafts"`
}

// CoachStats summarises a coach's review history and gate settings.
type CoachStats struct {
	OrgID              string         `json:"orgId"`
	CoachID            string         `json:"coachId"`
	Events             map[string]int `json:"events"`
	Reviewed           int            `json:"reviewed"`
	ApprovalRate       float64        `json:"approvalRate"`
	RejectionRate      float64        `json:"rejectionRate"`
	BaseThreshold      float64        `json:"baseThreshold"`
	EffectiveThreshold float64        `json:"effectiveThreshold"`
	AutoApprove        bool           `json:"autoApprove"`
	Trusted            bool           `json:"trusted"`
	TrustBoost         float64        `json:"trustBoost"`
}

// CoachSettings is the writable part of a coach's gate configuration.
type CoachSettings struct {
	AutoApprove bool    `json:"autoApprove"`
	Threshold   float64 `json:"threshold"`
	Trusted     bool    `json:"trusted"`
	TrustBoost  float64 `json:"trustBoost"`
}

// ModelRoute is one configured stage route.
type ModelRoute struct {
	Stage       string  `json:"stage"`
	OrgID       string  `json:"orgId,omitempty"`
	Provider    string  `json:"provider"`
	ModelID     string  `json:"modelId"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	Active      bool    `json:"active"`
	UpdatedBy   string  `json:"updatedBy,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

// SubmitRequest is the JSON body for typed-note submissions.
type SubmitRequest struct {
	OrgID      string `json:"orgId"`
	Channel    string `json:"channel,omitempty"`
	Transcript string `json:"transcript"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	ArtifactID string `json:"artifactId"`
}

// DisambiguateRequest names the roster player chosen by the coach.
type DisambiguateRequest struct {
	PlayerID string `json:"playerId"`
}

// DisambiguateResponse returns the draft created for the claim, if any.
type DisambiguateResponse struct {
	Draft *Draft `json:"draft,omitempty"`
}

// DraftListResponse wraps a list of drafts.
type DraftListResponse struct {
	Drafts []Draft `json:"drafts"`
}

// RetryResponse reports how many artifacts were reset.
type RetryResponse struct {
	Updated int64 `json:"updated"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running       bool           `json:"running"`
	ArtifactStats map[string]int `json:"artifactStats"`
	LastError     string         `json:"lastError,omitempty"`
	LastArtifact  *Artifact      `json:"lastArtifact,omitempty"`
	StageHealth   []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Providers    []string       `json:"providers"`
	InboxDir     string         `json:"inboxDir,omitempty"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
