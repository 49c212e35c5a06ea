package model

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// FileEvent is a single file activity record reported by the backend.
// Timestamp is kept as received so that unparseable values survive a round trip.
type FileEvent struct {
	Path              string    `json:"path" yaml:"path"`
	Timestamp         string    `json:"timestamp" yaml:"timestamp"`
	EventType         string    `json:"eventType" yaml:"eventType"`
	HoneypotTriggered bool      `json:"honeypotTriggered" yaml:"honeypotTriggered"`
	RiskScore         int       `json:"riskScore" yaml:"riskScore"`
	RiskLevel         RiskLevel `json:"riskLevel" yaml:"riskLevel"`
	Notes             []string  `json:"notes" yaml:"notes,omitempty"`
}

// Key identifies an event for display. It is not guaranteed to be unique.
func (e FileEvent) Key() string {
	return e.Path + "|" + e.Timestamp + "|" + e.EventType
}

type WatchStatus struct {
	Running              bool    `json:"running"`
	Directory            *string `json:"directory"`
	StartedAt            *string `json:"startedAt"`
	TotalEventsProcessed int64   `json:"totalEventsProcessed"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

type ReportSummary struct {
	Directory           *string     `json:"directory" yaml:"directory"`
	GeneratedAt         string      `json:"generatedAt" yaml:"generatedAt"`
	MonitoringStartedAt *string     `json:"monitoringStartedAt" yaml:"monitoringStartedAt"`
	TotalEvents         int64       `json:"totalEvents" yaml:"totalEvents"`
	HoneypotTriggers    int64       `json:"honeypotTriggers" yaml:"honeypotTriggers"`
	LowRiskCount        int64       `json:"lowRiskCount" yaml:"lowRiskCount"`
	MediumRiskCount     int64       `json:"mediumRiskCount" yaml:"mediumRiskCount"`
	HighRiskCount       int64       `json:"highRiskCount" yaml:"highRiskCount"`
	DetectedPatterns    []string    `json:"detectedPatterns" yaml:"detectedPatterns"`
	Events              []FileEvent `json:"events" yaml:"events"`
}

type HoneypotStatus struct {
	Enabled          bool     `json:"enabled"`
	DeployOnStart    bool     `json:"deployOnStart"`
	CleanupOnStop    bool     `json:"cleanupOnStop"`
	TrapFolderName   *string  `json:"trapFolderName"`
	WatchedDirectory *string  `json:"watchedDirectory"`
	DeployedCount    int      `json:"deployedCount"`
	DeployedPaths    []string `json:"deployedPaths"`
}

type StartWatchRequest struct {
	Directory string `json:"directory"`
}

type StartWatchResponse struct {
	Message   string `json:"message"`
	Directory string `json:"directory"`
}

type StopWatchResponse struct {
	Message string `json:"message,omitempty"`
	Stopped bool   `json:"stopped,omitempty"`
}

type ClearEventsResponse struct {
	Cleared bool `json:"cleared"`
}

type PickFolderResponse struct {
	Path string `json:"path,omitempty"`
}

// FilterCriteria narrows the event view. All set criteria must match.
type FilterCriteria struct {
	HighRiskOnly bool   `json:"high_risk_only"`
	HoneypotOnly bool   `json:"honeypot_only"`
	Search       string `json:"search"`
}

type RiskDistribution struct {
	Total    int `json:"total" yaml:"total"`
	Low      int `json:"low" yaml:"low"`
	Medium   int `json:"medium" yaml:"medium"`
	High     int `json:"high" yaml:"high"`
	Honeypot int `json:"honeypot" yaml:"honeypot"`
}

type RiskSlice struct {
	Level RiskLevel `json:"level" yaml:"level"`
	Name  string    `json:"name" yaml:"name"`
	Count int       `json:"count" yaml:"count"`
}

type TimelineBucket struct {
	Minute time.Time `json:"minute" yaml:"minute"`
	Label  string    `json:"label" yaml:"label"`
	Count  int       `json:"count" yaml:"count"`
}

type PatternCount struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Count    int    `json:"count" yaml:"count"`
	Severity string `json:"severity" yaml:"severity"`
}

// Analytics bundles every derivation of one event snapshot.
type Analytics struct {
	Distribution RiskDistribution `json:"distribution" yaml:"distribution"`
	RiskChart    []RiskSlice      `json:"risk_chart" yaml:"risk_chart"`
	Timeline     []TimelineBucket `json:"timeline" yaml:"timeline"`
	Patterns     []PatternCount   `json:"patterns" yaml:"patterns"`
}

// DashboardSnapshot is the API payload returned to dashboard clients.
type DashboardSnapshot struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	Generation      uint64          `json:"generation"`
	ActiveTab       string          `json:"active_tab"`
	DirectoryInput  string          `json:"directory_input"`
	Theme           string          `json:"theme"`
	Health          *HealthResponse `json:"health"`
	WatchStatus     *WatchStatus    `json:"watch_status"`
	Honeypot        *HoneypotStatus `json:"honeypot"`
	Report          *ReportSummary  `json:"report"`
	Filter          FilterCriteria  `json:"filter"`
	Events          []FileEvent     `json:"events"`
	TotalEvents     int             `json:"total_events"`
	Analytics       Analytics       `json:"analytics"`
	ErrorMessage    *string         `json:"error_message"`
	ToastMessage    *string         `json:"toast_message"`
	Loading         map[string]bool `json:"loading"`
	EventsUpdatedAt *time.Time      `json:"events_updated_at"`
	Stale           bool            `json:"stale"`
}
