package models

import "strings"

// LeadStatus is the pipeline stage of a Lead.
type LeadStatus string

// Lead statuses.
const (
	LeadNew           LeadStatus = "new"
	LeadContacted     LeadStatus = "contacted"
	LeadFollowUp      LeadStatus = "follow_up"
	LeadNegotiation   LeadStatus = "negotiation"
	LeadUnderContract LeadStatus = "under_contract"
	LeadClosed        LeadStatus = "closed"
	LeadDead          LeadStatus = "dead"
)

// LeadStatuses lists every recognized lead status.
var LeadStatuses = []LeadStatus{
	LeadNew, LeadContacted, LeadFollowUp, LeadNegotiation, LeadUnderContract, LeadClosed, LeadDead,
}

// PropertyStatus is the deal stage of a Property.
type PropertyStatus string

// Property statuses.
const (
	PropertyActive        PropertyStatus = "active"
	PropertyUnderContract PropertyStatus = "under_contract"
	PropertySold          PropertyStatus = "sold"
	PropertyWithdrawn     PropertyStatus = "withdrawn"
)

// PropertyStatuses lists every recognized property status.
var PropertyStatuses = []PropertyStatus{PropertyActive, PropertyUnderContract, PropertySold, PropertyWithdrawn}

// ContractStatus is the lifecycle stage of a Contract.
type ContractStatus string

// Contract statuses.
const (
	ContractDraft     ContractStatus = "draft"
	ContractSent      ContractStatus = "sent"
	ContractSigned    ContractStatus = "signed"
	ContractClosed    ContractStatus = "closed"
	ContractCancelled ContractStatus = "cancelled"
)

// ContractStatuses lists every recognized contract status.
var ContractStatuses = []ContractStatus{ContractDraft, ContractSent, ContractSigned, ContractClosed, ContractCancelled}

// ConversionStatus maps the lead statuses that trigger conversion to the
// status of the property created from them. Leads in any other status are
// never converted.
var ConversionStatus = map[LeadStatus]PropertyStatus{
	LeadNegotiation:   PropertyActive,
	LeadUnderContract: PropertyUnderContract,
}

// NormalizeStatus trims and lowercases a raw status string.
func NormalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseLeadStatus normalizes raw and reports whether it is a recognized status.
func ParseLeadStatus(raw string) (LeadStatus, bool) {
	s := LeadStatus(NormalizeStatus(raw))
	for _, known := range LeadStatuses {
		if s == known {
			return s, true
		}
	}
	return s, false
}

// ConvertibleStatus returns the property status a lead with the given raw
// status converts into, and false when the lead is not eligible.
func ConvertibleStatus(raw string) (PropertyStatus, bool) {
	ps, ok := ConversionStatus[LeadStatus(NormalizeStatus(raw))]
	return ps, ok
}

// ConvertibleLeadStatuses returns the normalized lead statuses eligible for conversion.
func ConvertibleLeadStatuses() []string {
	return []string{string(LeadNegotiation), string(LeadUnderContract)}
}
