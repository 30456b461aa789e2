package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names shared by the migration and the query builders.
const (
	eventSequenceTable = "event_sequence"
	imageEventsTable   = "image_request_events"
	llmEventsTable     = "llm_request_events"

	colID           = "id"
	colSeqValue     = "seq_value"
	colSequence     = "sequence"
	colTimestamp    = "timestamp"
	colProvider     = "provider"
	colKind         = "kind"
	colModel        = "model"
	colPurpose      = "purpose"
	colPrompt       = "prompt"
	colPayloadBytes = "payload_bytes"
	colInputTokens  = "input_tokens"
	colOutputTokens = "output_tokens"
	colLatencyMs    = "latency_ms"
	colSuccess      = "success"
	colErrorMessage = "error_message"
)

var (
	// eventSequenceColumns holds the single counter row.
	eventSequenceColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt},
		{Name: colSeqValue, Type: field.TypeInt64, Default: 0},
	}
	eventSequenceTableDef = &schema.Table{
		Name:       eventSequenceTable,
		Columns:    eventSequenceColumns,
		PrimaryKey: []*schema.Column{eventSequenceColumns[0]},
	}

	imageEventsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colSequence, Type: field.TypeInt64, Unique: true},
		{Name: colTimestamp, Type: field.TypeTime},
		{Name: colProvider, Type: field.TypeString},
		{Name: colKind, Type: field.TypeString},
		{Name: colPurpose, Type: field.TypeString, Default: ""},
		{Name: colPrompt, Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: colPayloadBytes, Type: field.TypeInt, Default: 0},
		{Name: colLatencyMs, Type: field.TypeInt64, Default: 0},
		{Name: colSuccess, Type: field.TypeBool},
		{Name: colErrorMessage, Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	imageEventsTableDef = &schema.Table{
		Name:       imageEventsTable,
		Columns:    imageEventsColumns,
		PrimaryKey: []*schema.Column{imageEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "imagerequestevent_provider", Columns: []*schema.Column{imageEventsColumns[3]}},
			{Name: "imagerequestevent_success", Columns: []*schema.Column{imageEventsColumns[9]}},
		},
	}

	llmEventsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colSequence, Type: field.TypeInt64, Unique: true},
		{Name: colTimestamp, Type: field.TypeTime},
		{Name: colProvider, Type: field.TypeString},
		{Name: colModel, Type: field.TypeString},
		{Name: colPurpose, Type: field.TypeString, Default: ""},
		{Name: colInputTokens, Type: field.TypeInt, Default: 0},
		{Name: colOutputTokens, Type: field.TypeInt, Default: 0},
		{Name: colLatencyMs, Type: field.TypeInt64, Default: 0},
		{Name: colSuccess, Type: field.TypeBool},
		{Name: colErrorMessage, Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	llmEventsTableDef = &schema.Table{
		Name:       llmEventsTable,
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmEventsColumns[5]}},
		},
	}

	// tables lists every table Open migrates.
	tables = []*schema.Table{
		eventSequenceTableDef,
		imageEventsTableDef,
		llmEventsTableDef,
	}
)
