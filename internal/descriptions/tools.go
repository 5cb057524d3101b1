package descriptions

import "sort"

// Tool descriptions with practical examples for the rental contract tools

const (
	// Document tools work on raw PDF bytes and keep no state
	DocumentCreateDescription = `Generate a fillable rental contract (kira sözleşmesi) PDF from contract fields.

**When to use:** You have the parties, property and terms of a rental and need the contract document.

**Why it's useful:** Every one of the 28 contract fields becomes a named, editable form field pre-filled with its value, so the document can be opened, corrected and read back later.

**Examples:**
• New contract: fields={"landlordName":"Ali Veli","tenantName":"Ayşe Demir","rentAmount":"15000","currency":"TRY"}
• Save a copy to the output directory: add save=true

**Common workflows:**
1. Draft: contract_document_create → review → contract_document_finalize → print
2. Correction: contract_document_fields → change values → contract_document_create

**Best practices:** Missing fields are left empty, unknown keys are reported back and ignored. Use contract_record_create instead when the contract should be tracked.`

	DocumentFieldsDescription = `Read the contract fields back out of a fillable contract PDF.

**When to use:** You have a contract document (base64 or a file name in the output directory) and need its current values.

**Why it's useful:** Returns a complete field set, every schema field present and empty when the document has no value for it. Form fields the contract doesn't know are skipped and listed as warnings.

**Examples:**
• From a saved file: name="kira-sozlesmesi-ayse-demir-2024-06-01.pdf"
• From bytes: document="JVBERi0xLjcK..."

**Best practices:** A printed (flattened) document has no fields left, so every value comes back empty.`

	DocumentFinalizeDescription = `Flatten a fillable contract PDF for printing.

**When to use:** The contract is final and must not be edited any more.

**Why it's useful:** Field values are drawn into the page and the form is removed. The result looks the same but has no editable fields. Finalizing an already final document returns it unchanged.

**Examples:**
• Finalize and save: name="kira-sozlesmesi-ayse-demir-2024-06-01.pdf", save=true

**Best practices:** Keep the fillable original if the contract may still change; flattening can't be undone.`

	// Record tools run the contract lifecycle
	RecordCreateDescription = `Create a tracked rental contract record in draft status.

**When to use:** Starting a new contract that will move through draft → active → completed.

**Why it's useful:** Fields are validated (required parties, dates, amounts, currency), the fillable document is generated and stored with the record.

**Examples:**
• fields={"landlordName":"Ali Veli","tenantName":"Ayşe Demir",...}, office="kadikoy"

**Best practices:** Validation errors name every offending field; fix them all and retry.`

	RecordGetDescription = `Show one contract record with its details, status and document revision.`

	RecordListDescription = `List contract records, newest last.

**Examples:**
• Active contracts of an office: office="kadikoy", status="active"
• Search by name or address: query="demir"`

	RecordEditDescription = `Change the fields of a draft or active contract and regenerate its document.

**When to use:** After contract_record_reopen, to apply corrections.

**Why it's useful:** Only the keys you pass change; the rest keep their current values. The document revision goes up by one.

**Best practices:** Completed and cancelled contracts are closed for editing.`

	RecordReopenDescription = `Reopen a contract for editing by reading the current values back out of its stored document.

**Common workflows:**
1. Edit cycle: contract_record_reopen → change values → contract_record_edit`

	RecordTransitionDescription = `Move a contract to another status.

**Allowed moves:** draft → active, draft → cancelled, active → completed, active → cancelled. Completed and cancelled are final.`

	RecordDownloadDescription = `Save the contract document under its download name, kira-sozlesmesi-<tenant>-<yyyy-mm-dd>.pdf.

**Targets:**
• file (default): the configured output directory
• object: the configured S3 bucket, returning a time limited download link`

	RecordPrintDescription = `Finalize the contract document and send it to the configured printer.

**Best practices:** The printed copy is flattened; the stored record keeps its fillable document.`

	RecordExportDescription = `Download the documents of every matching contract at once.

**Examples:**
• All active contracts to the bucket: status="active", target="object"`

	ServerInfoDescription = `Show server version, configuration, available tools and how many contracts are tracked.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"contract_document_create":   DocumentCreateDescription,
	"contract_document_fields":   DocumentFieldsDescription,
	"contract_document_finalize": DocumentFinalizeDescription,
	"contract_record_create":     RecordCreateDescription,
	"contract_record_get":        RecordGetDescription,
	"contract_record_list":       RecordListDescription,
	"contract_record_edit":       RecordEditDescription,
	"contract_record_reopen":     RecordReopenDescription,
	"contract_record_transition": RecordTransitionDescription,
	"contract_record_download":   RecordDownloadDescription,
	"contract_record_print":      RecordPrintDescription,
	"contract_record_export":     RecordExportDescription,
	"contract_server_info":       ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names in alphabetical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
