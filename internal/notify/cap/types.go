// Package cap hand-rolls the OASIS Common Alerting Protocol 1.2 XML
// envelope: the Alert/Info type pair, a builder that maps an analysis
// event into one, and a validator enforcing the structural constraints
// spec §4.5 names. No schema-driven codegen; the struct tags are the
// contract.
package cap

import "encoding/xml"

// Namespace is the CAP 1.2 XML namespace every Alert root carries.
const Namespace = "urn:oasis:names:tc:emergency:cap:1.2"

// Status is the Alert.status enum.
type Status string

const (
	StatusActual   Status = "Actual"
	StatusExercise Status = "Exercise"
	StatusSystem   Status = "System"
	StatusTest     Status = "Test"
	StatusDraft    Status = "Draft"
)

// MsgType is the Alert.msgType enum.
type MsgType string

const (
	MsgTypeAlert  MsgType = "Alert"
	MsgTypeUpdate MsgType = "Update"
	MsgTypeCancel MsgType = "Cancel"
	MsgTypeAck    MsgType = "Ack"
	MsgTypeError  MsgType = "Error"
)

// Scope is the Alert.scope enum.
type Scope string

const (
	ScopePublic     Scope = "Public"
	ScopeRestricted Scope = "Restricted"
	ScopePrivate    Scope = "Private"
)

// Urgency is the Info.urgency enum.
type Urgency string

const (
	UrgencyImmediate Urgency = "Immediate"
	UrgencyExpected  Urgency = "Expected"
	UrgencyFuture    Urgency = "Future"
	UrgencyPast      Urgency = "Past"
	UrgencyUnknown   Urgency = "Unknown"
)

// InfoSeverity is the Info.severity enum (distinct from domain.Severity,
// which is the internal analysis-event scale).
type InfoSeverity string

const (
	SeverityExtreme  InfoSeverity = "Extreme"
	SeveritySevere   InfoSeverity = "Severe"
	SeverityModerate InfoSeverity = "Moderate"
	SeverityMinor    InfoSeverity = "Minor"
	SeverityUnknown  InfoSeverity = "Unknown"
)

// Certainty is the Info.certainty enum.
type Certainty string

const (
	CertaintyObserved Certainty = "Observed"
	CertaintyLikely   Certainty = "Likely"
	CertaintyPossible Certainty = "Possible"
	CertaintyUnlikely Certainty = "Unlikely"
	CertaintyUnknown  Certainty = "Unknown"
)

// Alert is the CAP 1.2 envelope root.
type Alert struct {
	XMLName     xml.Name `xml:"urn:oasis:names:tc:emergency:cap:1.2 alert"`
	Identifier  string   `xml:"identifier"`
	Sender      string   `xml:"sender"`
	Sent        string   `xml:"sent"`
	Status      Status   `xml:"status"`
	MsgType     MsgType  `xml:"msgType"`
	Source      string   `xml:"source,omitempty"`
	Scope       Scope    `xml:"scope"`
	Restriction string   `xml:"restriction,omitempty"`
	Addresses   string   `xml:"addresses,omitempty"`
	Code        []string `xml:"code,omitempty"`
	Note        string   `xml:"note,omitempty"`
	References  string   `xml:"references,omitempty"`
	Incidents   string   `xml:"incidents,omitempty"`
	Info        []Info   `xml:"info"`
}

// Info is one CAP info block within an Alert.
type Info struct {
	Language     string       `xml:"language,omitempty"`
	Category     []string     `xml:"category"`
	Event        string       `xml:"event"`
	ResponseType []string     `xml:"responseType,omitempty"`
	Urgency      Urgency      `xml:"urgency"`
	Severity     InfoSeverity `xml:"severity"`
	Certainty    Certainty    `xml:"certainty"`
	Audience     string       `xml:"audience,omitempty"`
	EventCode    []Parameter  `xml:"eventCode,omitempty"`
	Effective    string       `xml:"effective,omitempty"`
	Onset        string       `xml:"onset,omitempty"`
	Expires      string       `xml:"expires,omitempty"`
	SenderName   string       `xml:"senderName,omitempty"`
	Headline     string       `xml:"headline,omitempty"`
	Description  string       `xml:"description,omitempty"`
	Instruction  string       `xml:"instruction,omitempty"`
	Web          string       `xml:"web,omitempty"`
	Contact      string       `xml:"contact,omitempty"`
	Parameter    []Parameter  `xml:"parameter,omitempty"`
	Resource     []Resource   `xml:"resource,omitempty"`
	Area         []Area       `xml:"area,omitempty"`
}

// Parameter is a CAP valueName/value pair, used for both Info.parameter
// and Info.eventCode.
type Parameter struct {
	ValueName string `xml:"valueName"`
	Value     string `xml:"value"`
}

// Resource describes supplementary material attached to an Info block.
type Resource struct {
	ResourceDesc string `xml:"resourceDesc"`
	MimeType     string `xml:"mimeType,omitempty"`
	Size         int64  `xml:"size,omitempty"`
	URI          string `xml:"uri,omitempty"`
	DerefURI     string `xml:"derefUri,omitempty"`
	Digest       string `xml:"digest,omitempty"`
}

// Area describes the geographic area an Info block applies to; at least
// one of Polygon, Circle, or Geocode must be set.
type Area struct {
	AreaDesc string      `xml:"areaDesc"`
	Polygon  []string    `xml:"polygon,omitempty"`
	Circle   []string    `xml:"circle,omitempty"`
	Geocode  []Parameter `xml:"geocode,omitempty"`
	Altitude *float64    `xml:"altitude,omitempty"`
	Ceiling  *float64    `xml:"ceiling,omitempty"`
}
