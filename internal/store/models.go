package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an artifact.
type Status string

const (
	StatusReceived       Status = "received"
	StatusTranscribing   Status = "transcribing"
	StatusTranscribed    Status = "transcribed"
	StatusProcessing     Status = "processing"
	StatusExtracted      Status = "extracted"
	StatusResolving      Status = "resolving"
	StatusClaimsResolved Status = "claims_resolved"
	StatusDrafting       Status = "drafting"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

var allStatuses = []Status{
	StatusReceived,
	StatusTranscribing,
	StatusTranscribed,
	StatusProcessing,
	StatusExtracted,
	StatusResolving,
	StatusClaimsResolved,
	StatusDrafting,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions maps every in-flight status to the status its stage
// started from.
var stageRollbackTransitions = []statusTransition{
	{from: StatusTranscribing, to: StatusReceived},
	{from: StatusProcessing, to: StatusTranscribed},
	{from: StatusResolving, to: StatusExtracted},
	{from: StatusDrafting, to: StatusClaimsResolved},
}

// ParseStatus converts a string into a known status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// AllStatuses returns every known artifact status in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Lifecycle folds internal sub-states into the coach-facing processing state:
// received, transcribing, transcribed, processing, completed or failed.
func (s Status) Lifecycle() Status {
	switch s {
	case StatusExtracted, StatusResolving, StatusClaimsResolved, StatusDrafting:
		return StatusProcessing
	default:
		return s
	}
}

// IsTerminal reports whether no further pipeline stage will run.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsInFlight reports whether a stage is currently working the artifact.
func (s Status) IsInFlight() bool {
	for _, tr := range stageRollbackTransitions {
		if tr.from == s {
			return true
		}
	}
	return false
}

// MediaKind distinguishes audio submissions from typed notes.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaText  MediaKind = "text"
)

// Artifact is one submitted voice or text note.
type Artifact struct {
	ID            string
	OrgID         string
	CoachID       string
	SourceChannel string
	MediaKind     MediaKind
	AudioPath     string
	Transcript    string
	Status        Status
	Attempts      int
	ResumeStatus  Status
	Halted        bool
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// ArtifactInput carries the fields accepted at submission time.
type ArtifactInput struct {
	OrgID         string
	CoachID       string
	SourceChannel string
	MediaKind     MediaKind
	AudioPath     string
	Transcript    string
}

// ArtifactFilter narrows ListArtifacts.
type ArtifactFilter struct {
	OrgID    string
	CoachID  string
	Statuses []Status
	Limit    int
}

// Topic is the closed claim taxonomy.
type Topic string

const (
	TopicInjury               Topic = "injury"
	TopicSkillRating          Topic = "skill_rating"
	TopicSkillProgress        Topic = "skill_progress"
	TopicBehavior             Topic = "behavior"
	TopicPerformance          Topic = "performance"
	TopicAttendance           Topic = "attendance"
	TopicWellbeing            Topic = "wellbeing"
	TopicRecovery             Topic = "recovery"
	TopicDevelopmentMilestone Topic = "development_milestone"
	TopicPhysicalDevelopment  Topic = "physical_development"
	TopicParentCommunication  Topic = "parent_communication"
	TopicTactical             Topic = "tactical"
	TopicTeamCulture          Topic = "team_culture"
	TopicTodo                 Topic = "todo"
	TopicSessionPlan          Topic = "session_plan"
)

var allTopics = []Topic{
	TopicInjury,
	TopicSkillRating,
	TopicSkillProgress,
	TopicBehavior,
	TopicPerformance,
	TopicAttendance,
	TopicWellbeing,
	TopicRecovery,
	TopicDevelopmentMilestone,
	TopicPhysicalDevelopment,
	TopicParentCommunication,
	TopicTactical,
	TopicTeamCulture,
	TopicTodo,
	TopicSessionPlan,
}

// Topics returns the claim taxonomy.
func Topics() []Topic {
	out := make([]Topic, len(allTopics))
	copy(out, allTopics)
	return out
}

// ParseTopic reports whether value names a topic exactly. Unknown values are
// rejected rather than coerced.
func ParseTopic(value string) (Topic, bool) {
	for _, topic := range allTopics {
		if string(topic) == value {
			return topic, true
		}
	}
	return "", false
}

// Severity tags how urgent a claim is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Sentiment tags the tone of a claim.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ClaimStatus tracks claim resolution.
type ClaimStatus string

const (
	ClaimExtracted           ClaimStatus = "extracted"
	ClaimResolving           ClaimStatus = "resolving"
	ClaimResolved            ClaimStatus = "resolved"
	ClaimNeedsDisambiguation ClaimStatus = "needs_disambiguation"
	ClaimMerged              ClaimStatus = "merged"
	ClaimDiscarded           ClaimStatus = "discarded"
	ClaimFailed              ClaimStatus = "failed"
)

// Settled reports whether the claim no longer blocks drafting.
func (s ClaimStatus) Settled() bool {
	switch s {
	case ClaimResolved, ClaimNeedsDisambiguation, ClaimMerged, ClaimDiscarded, ClaimFailed:
		return true
	default:
		return false
	}
}

// MentionKind records which roster table a mention resolved against.
type MentionKind string

const (
	MentionTeam   MentionKind = "team"
	MentionPlayer MentionKind = "player"
	MentionStaff  MentionKind = "staff"
)

// MentionOutcome is the per-mention resolver verdict.
type MentionOutcome string

const (
	OutcomeMatched   MentionOutcome = "matched"
	OutcomeAmbiguous MentionOutcome = "ambiguous"
	OutcomeNoMatch   MentionOutcome = "no_match"
)

// CandidateRef is a scored roster candidate kept for disambiguation.
type CandidateRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// MentionResolution is the persisted outcome for one raw mention.
type MentionResolution struct {
	Mention     string         `json:"mention"`
	Kind        MentionKind    `json:"kind,omitempty"`
	Outcome     MentionOutcome `json:"outcome"`
	RefID       string         `json:"ref_id,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Confidence  float64        `json:"confidence"`
	Tier        string         `json:"tier,omitempty"`
	Candidates  []CandidateRef `json:"candidates,omitempty"`
}

// Claim is one discrete factual statement extracted from a transcript.
type Claim struct {
	ID                   string
	ArtifactID           string
	Sequence             int
	Topic                Topic
	Title                string
	Snippet              string
	RecommendedAction    string
	AudioOffsetMS        *int64
	Mentions             []string
	ExtractionConfidence float64
	Severity             Severity
	Sentiment            Sentiment
	PlayerID             string
	TeamID               string
	AssigneeID           string
	Resolutions          []MentionResolution
	ResolutionConfidence float64
	Status               ClaimStatus
	StatusReason         string
	MergedInto           string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// DraftStatus tracks the confirmation lifecycle.
type DraftStatus string

const (
	DraftPending   DraftStatus = "pending"
	DraftConfirmed DraftStatus = "confirmed"
	DraftApplied   DraftStatus = "applied"
	DraftRejected  DraftStatus = "rejected"
	DraftExpired   DraftStatus = "expired"
)

// Draft is a proposed mutation awaiting coach confirmation. Only Status and
// the ConfirmedAt/AppliedAt timestamps change after insert.
type Draft struct {
	ID                   string
	ArtifactID           string
	ClaimID              string
	OrgID                string
	CoachID              string
	PlayerID             string
	PlayerName           string
	TeamID               string
	InsightType          Topic
	Title                string
	Description          string
	EvidenceSnippet      string
	EvidenceOffsetMS     *int64
	DisplayOrder         int
	ExtractionConfidence float64
	ResolutionConfidence float64
	OverallConfidence    float64
	RequiresConfirmation bool
	Status               DraftStatus
	CreatedAt            time.Time
	ConfirmedAt          *time.Time
	AppliedAt            *time.Time
}

// DraftTransition is a conditional status change. The update only lands when
// the draft is still in From (and, when NotBefore is set, was created at or
// after it).
type DraftTransition struct {
	ID        string
	From      DraftStatus
	To        DraftStatus
	At        time.Time
	NotBefore time.Time
}

// Insight is the permanent record written when a draft is applied.
type Insight struct {
	ID                string
	OrgID             string
	PlayerID          string
	TeamID            string
	Category          Topic
	Title             string
	Description       string
	RecommendedAction string
	Severity          Severity
	SourceArtifactID  string
	DraftID           string
	ClaimID           string
	Confidence        float64
	CoachID           string
	CreatedAt         time.Time
}

// ModelConfig routes one pipeline stage to a provider model.
type ModelConfig struct {
	Stage       string    `json:"stage"`
	OrgID       string    `json:"org_id,omitempty"`
	Provider    string    `json:"provider"`
	ModelID     string    `json:"model_id"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Active      bool      `json:"active"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConfigAction names a model configuration write.
type ConfigAction string

const (
	ConfigUpsert ConfigAction = "upsert"
	ConfigDelete ConfigAction = "delete"
)

// ModelConfigChange is one append-only entry in the model configuration log.
type ModelConfigChange struct {
	Seq       int64
	Stage     string
	OrgID     string
	Action    ConfigAction
	Previous  *ModelConfig
	Next      *ModelConfig
	Actor     string
	Reason    string
	CreatedAt time.Time
}

// CoachSettings holds the per-coach confirmation gate preferences.
type CoachSettings struct {
	OrgID       string
	CoachID     string
	AutoApprove bool
	Threshold   float64
	Trusted     bool
	TrustBoost  float64
	UpdatedAt   time.Time
}

// CoachEventKind names an append-only coach statistics event.
type CoachEventKind string

const (
	EventConfirmed     CoachEventKind = "confirmed"
	EventAutoConfirmed CoachEventKind = "auto_confirmed"
	EventRejected      CoachEventKind = "rejected"
	EventApplied       CoachEventKind = "applied"
	EventExpired       CoachEventKind = "expired"
	EventDisambiguated CoachEventKind = "disambiguated"
)

// CoachEvent is one append-only statistics entry.
type CoachEvent struct {
	Seq        int64
	OrgID      string
	CoachID    string
	Kind       CoachEventKind
	DraftID    string
	ClaimID    string
	ArtifactID string
	Actor      string
	CreatedAt  time.Time
}

// Team is a roster team.
type Team struct {
	ID      string   `yaml:"id"`
	OrgID   string   `yaml:"-"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// Player is a roster player.
type Player struct {
	ID        string   `yaml:"id"`
	OrgID     string   `yaml:"-"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Nickname  string   `yaml:"nickname,omitempty"`
	Aliases   []string `yaml:"aliases,omitempty"`
	TeamIDs   []string `yaml:"teams,omitempty"`
}

// DisplayName renders the player's full name.
func (p Player) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Staff is a coach or staff member that todo claims can be assigned to.
type Staff struct {
	ID      string   `yaml:"id"`
	OrgID   string   `yaml:"-"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// Roster is the full candidate set for one organisation.
type Roster struct {
	Teams   []Team   `yaml:"teams"`
	Players []Player `yaml:"players"`
	Staff   []Staff  `yaml:"staff"`
}

// RosterImportResult counts rows written by ImportRoster.
type RosterImportResult struct {
	Teams   int
	Players int
	Staff   int
}
