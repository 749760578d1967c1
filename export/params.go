package export

import "github.com/folio-org/mod-data-export-spring-sub001/schedule"

// SpecificParameters is the per-type parameter payload of an export
// configuration. Exactly one branch is populated, matching the
// configuration's Type. The engine treats the payload as opaque except for
// the nested schedule EDI-based exports embed.
type SpecificParameters struct {
	BursarFeeFines              *BursarFeeFines              `json:"bursarFeeFines,omitempty"`
	VendorEdiOrdersExportConfig *VendorEdiOrdersExportConfig `json:"vendorEdiOrdersExportConfig,omitempty"`
	EHoldings                   *EHoldingsExportConfig       `json:"eHoldingsExportConfig,omitempty"`
}

// BursarFeeFines configures a bursar fee/fine export run.
type BursarFeeFines struct {
	DaysOutstanding int      `json:"daysOutstanding"`
	PatronGroups    []string `json:"patronGroups,omitempty"`
}

// TransmissionMethod is how an EDI export file leaves the platform.
type TransmissionMethod string

// Transmission methods for EDI-based exports.
const (
	TransmissionFTP          TransmissionMethod = "FTP"
	TransmissionFileDownload TransmissionMethod = "FILE_DOWNLOAD"
)

// VendorEdiOrdersExportConfig configures an EDIFACT orders or claims export
// for one vendor. It embeds its own schedule so each vendor integration can
// run on an independent cadence.
type VendorEdiOrdersExportConfig struct {
	VendorID           string             `json:"vendorId"`
	ConfigName         string             `json:"configName,omitempty"`
	TransmissionMethod TransmissionMethod `json:"transmissionMethod,omitempty"`
	FileFormat         string             `json:"fileFormat,omitempty"`
	EdiSchedule        *EdiSchedule       `json:"ediSchedule,omitempty"`
	EdiFtp             *EdiFtpProperties  `json:"ediFtp,omitempty"`
}

// EdiSchedule wraps the nested schedule parameters of an EDI export.
type EdiSchedule struct {
	Enabled    bool                `json:"enableScheduledExport"`
	Parameters schedule.Parameters `json:"scheduleParameters"`
}

// EdiFtpProperties holds the FTP destination of an EDI export.
type EdiFtpProperties struct {
	Host     string `json:"serverAddress,omitempty"`
	Port     int    `json:"ftpPort,omitempty"`
	Username string `json:"username,omitempty"`
	Dir      string `json:"orderDirectory,omitempty"`
}

// EHoldingsExportConfig configures an e-holdings export run.
type EHoldingsExportConfig struct {
	RecordID    string   `json:"recordId"`
	RecordType  string   `json:"recordType,omitempty"`
	TitleFields []string `json:"titleFields,omitempty"`
}
