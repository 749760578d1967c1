package export

import (
	"fmt"

	dataexport "github.com/folio-org/mod-data-export-spring-sub001"
)

// CommandTypeStart is the only command type the engine emits: start one
// export run.
const CommandTypeStart = "START"

// ParamSpecificParameters is the well-known command parameter name the
// serialized type-specific payload is attached under. The downstream
// pipeline deserializes it with the matching codec.
const ParamSpecificParameters = "exportTypeSpecificParameters"

// Job is the transient, system-sourced export job synthesized at fire time
// from the live configuration. It exists to be recorded by the bookkeeping
// collaborator and turned into a Command; the engine never persists it.
type Job struct {
	// ID is assigned by the bookkeeping collaborator. A job without an id
	// produces no command.
	ID string `json:"id,omitempty"`

	Tenant       string              `json:"tenant"`
	Type         Type                `json:"type"`
	ConfigID     string              `json:"exportConfigId"`
	Params       *SpecificParameters `json:"exportTypeSpecificParameters,omitempty"`
	SystemSource bool                `json:"isSystemSource"`
}

// Command is the message published once per firing, instructing the
// downstream pipeline to perform one export run. Transient by contract.
type Command struct {
	Type           string            `json:"type"`
	ID             string            `json:"id"`
	Tenant         string            `json:"tenant"`
	ExportType     Type              `json:"exportType"`
	Parameters     map[string]string `json:"jobParameters"`
	IdentifierType string            `json:"identifierType,omitempty"`
	EntityType     string            `json:"entityType,omitempty"`
}

// CommandBuilder builds the outgoing command for one export job. This is one
// of the three per-type resolver concerns.
type CommandBuilder interface {
	Build(job *Job) (*Command, error)
}

// NewCommandBuilders returns the command-builder resolver with the built-in
// strategies registered and the generic builder as default.
func NewCommandBuilders(codec Codec) *Resolver[CommandBuilder] {
	if codec == nil {
		codec = GetCodec("")
	}
	r := NewResolver[CommandBuilder](&genericCommandBuilder{codec: codec})
	edi := &ediCommandBuilder{codec: codec}
	r.Register(TypeEdifactOrders, edi)
	r.Register(TypeClaims, edi)
	r.Register(TypeEHoldings, &eHoldingsCommandBuilder{codec: codec})
	return r
}

// genericCommandBuilder serializes the type-specific payload under the
// well-known parameter name. Sufficient for every export type without extra
// command metadata.
type genericCommandBuilder struct {
	codec Codec
}

func (b *genericCommandBuilder) Build(job *Job) (*Command, error) {
	cmd, err := baseCommand(b.codec, job)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// ediCommandBuilder serves EDIFACT orders and claims exports: both carry the
// vendor id so the pipeline can route the file to the vendor integration.
type ediCommandBuilder struct {
	codec Codec
}

func (b *ediCommandBuilder) Build(job *Job) (*Command, error) {
	cmd, err := baseCommand(b.codec, job)
	if err != nil {
		return nil, err
	}
	if job.Params != nil && job.Params.VendorEdiOrdersExportConfig != nil {
		cmd.Parameters["vendorId"] = job.Params.VendorEdiOrdersExportConfig.VendorID
	}
	return cmd, nil
}

// eHoldingsCommandBuilder adds the record identity the e-holdings pipeline
// keys its queries on.
type eHoldingsCommandBuilder struct {
	codec Codec
}

func (b *eHoldingsCommandBuilder) Build(job *Job) (*Command, error) {
	cmd, err := baseCommand(b.codec, job)
	if err != nil {
		return nil, err
	}
	if job.Params != nil && job.Params.EHoldings != nil {
		cmd.IdentifierType = "ID"
		cmd.EntityType = job.Params.EHoldings.RecordType
		cmd.Parameters["recordId"] = job.Params.EHoldings.RecordID
	}
	return cmd, nil
}

// baseCommand builds the common command shell and attaches the serialized
// type-specific payload. Serialization failures wrap ErrInvalidArgument and
// abort the dispatch of this single firing.
func baseCommand(codec Codec, job *Job) (*Command, error) {
	params := map[string]string{}
	if job.Params != nil {
		data, err := codec.Marshal(job.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: serialize %s parameters: %v", dataexport.ErrInvalidArgument, job.Type, err)
		}
		params[ParamSpecificParameters] = string(data)
	}
	return &Command{
		Type:       CommandTypeStart,
		ID:         job.ID,
		Tenant:     job.Tenant,
		ExportType: job.Type,
		Parameters: params,
	}, nil
}
