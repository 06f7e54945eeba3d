package qc

import "github.com/JaimeStill/osprey/pkg/openapi"

var (
	folderParam  = openapi.PathParam("id", "string", "Folder ID: an integer or a UUID for transcription folders")
	projectParam = openapi.PathParam("id", "integer", "Project ID")
	variantParam = openapi.QueryParam("variant", "string", "", "Folder variant: files (default) or transcription")
)

func jsonOK(description, schema string) map[int]*openapi.Response {
	return map[int]*openapi.Response{200: openapi.ResponseJSON(description, schema)}
}

var docs = struct {
	Enter        *openapi.Operation
	Next         *openapi.Operation
	Verdict      *openapi.Operation
	Summary      *openapi.Operation
	Finalize     *openapi.Operation
	Overview     *openapi.Operation
	ListFolders  *openapi.Operation
	AdvanceLevel *openapi.Operation
}{
	Enter: (&openapi.Operation{
		OperationID: "enterFolder",
		Summary:     "Enter a folder for review",
		Description: "Claims the folder for the reviewer and draws the sample on first entry. A held claim is reported with granted=false.",
		Tags:        []string{"QC Folders"},
		Parameters:  []*openapi.Parameter{folderParam},
		RequestBody: openapi.RequestBodyJSON("EnterRequest", true),
		Responses:   jsonOK("Claim outcome", "ClaimResult"),
	}).Fails(400, 404, 409, 413),

	Next: (&openapi.Operation{
		OperationID: "nextFile",
		Summary:     "Next file to review",
		Tags:        []string{"QC Folders"},
		Parameters:  []*openapi.Parameter{folderParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("First sampled file without a verdict", "File"),
			204: {Description: "Every sampled file has a verdict"},
		},
	}).Fails(400, 404),

	Verdict: (&openapi.Operation{
		OperationID: "submitVerdict",
		Summary:     "Record a file verdict",
		Description: "Notes are required for any severity other than ok. Recording a verdict renews the reviewer's lease.",
		Tags:        []string{"QC Folders"},
		Parameters: []*openapi.Parameter{
			folderParam,
			openapi.PathParam("fileId", "string", "Sampled file ID"),
		},
		RequestBody: openapi.RequestBodyJSON("VerdictCommand", true),
		Responses:   jsonOK("Updated file", "File"),
	}).Fails(400, 403, 404, 409, 413),

	Summary: (&openapi.Operation{
		OperationID: "folderSummary",
		Summary:     "Folder review summary",
		Tags:        []string{"QC Folders"},
		Parameters:  []*openapi.Parameter{folderParam},
		Responses:   jsonOK("Counts, thresholds, and proposed result", "Summary"),
	}).Fails(400, 404),

	Finalize: (&openapi.Operation{
		OperationID: "finalizeFolder",
		Summary:     "Finalize a folder",
		Description: "Confirms the folder verdict once every sampled file is reviewed, then re-evaluates the project's inspection level.",
		Tags:        []string{"QC Folders"},
		Parameters:  []*openapi.Parameter{folderParam},
		RequestBody: openapi.RequestBodyJSON("FinalizeCommand", true),
		Responses:   jsonOK("Finalized folder and level outcome", "FinalizeResult"),
	}).Fails(400, 403, 404, 409, 413),

	Overview: (&openapi.Operation{
		OperationID: "projectOverview",
		Summary:     "Project QC overview",
		Tags:        []string{"QC Projects"},
		Parameters:  []*openapi.Parameter{projectParam, variantParam},
		Responses:   jsonOK("Settings and progress counts", "Overview"),
	}).Fails(400, 404),

	ListFolders: (&openapi.Operation{
		OperationID: "listFolders",
		Summary:     "List project folders with QC state",
		Tags:        []string{"QC Projects"},
		Parameters: []*openapi.Parameter{
			projectParam,
			variantParam,
			openapi.QueryParam("page", "integer", "", "Page number (1-indexed)"),
			openapi.QueryParam("page_size", "integer", "", "Results per page"),
			openapi.QueryParam("search", "string", "", "Folder name contains"),
			openapi.QueryParam("sort", "string", "", "Comma-separated sort fields. Prefix with - for descending"),
			openapi.QueryParam("qc_status", "string", "", "passed, failed, pending, or not_started"),
			openapi.QueryParam("qc_level", "string", "", "Tightened, Normal, or Reduced"),
			openapi.QueryParam("qc_by", "string", "", "Reviewer"),
			openapi.QueryParam("from", "string", "date", "Earliest folder date"),
			openapi.QueryParam("to", "string", "date", "Latest folder date"),
		},
		Responses: jsonOK("Page of folders", "FolderStatusPage"),
	}).Fails(400),

	AdvanceLevel: (&openapi.Operation{
		OperationID: "advanceLevel",
		Summary:     "Re-evaluate the inspection level",
		Description: "Applies the switching rules to the project's recent finalized folders.",
		Tags:        []string{"QC Projects"},
		Parameters:  []*openapi.Parameter{projectParam, variantParam},
		Responses:   jsonOK("Previous and current level", "LevelChange"),
	}).Fails(400, 404),
}

var (
	statusEnum   = []any{int(StatusPassed), int(StatusFailed), int(StatusPending)}
	severityEnum = []any{int(SeverityOK), int(SeverityCritical), int(SeverityMajor), int(SeverityMinor), int(SeverityPending)}
	levelEnum    = []any{string(LevelTightened), string(LevelNormal), string(LevelReduced)}
)

// Schemas returns the component schemas referenced by the QC operations.
func Schemas() map[string]*openapi.Schema {
	counts := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"ok":       {Type: "integer"},
			"critical": {Type: "integer"},
			"major":    {Type: "integer"},
			"minor":    {Type: "integer"},
			"pending":  {Type: "integer"},
			"total":    {Type: "integer"},
		},
	}

	thresholds := &openapi.Schema{
		Type:        "object",
		Description: "Allowed issue counts per severity for the sample size",
		Properties: map[string]*openapi.Schema{
			"critical": {Type: "integer"},
			"major":    {Type: "integer"},
			"minor":    {Type: "integer"},
		},
	}

	return map[string]*openapi.Schema{
		"EnterRequest": {
			Type:     "object",
			Required: []string{"reviewer"},
			Properties: map[string]*openapi.Schema{
				"reviewer": {Type: "string", MinLength: openapi.Length(1), Example: "alice"},
			},
		},
		"VerdictCommand": {
			Type:     "object",
			Required: []string{"severity", "reviewer"},
			Properties: map[string]*openapi.Schema{
				"severity": {Type: "integer", Enum: severityEnum[:4], Description: "0 ok, 1 critical, 2 major, 3 minor"},
				"notes":    {Type: "string", Description: "Required unless severity is 0"},
				"reviewer": {Type: "string"},
			},
		},
		"FinalizeCommand": {
			Type:     "object",
			Required: []string{"status", "reviewer"},
			Properties: map[string]*openapi.Schema{
				"status":   {Type: "integer", Enum: statusEnum[:2], Description: "0 passed, 1 failed"},
				"notes":    {Type: "string"},
				"reviewer": {Type: "string"},
			},
		},
		"Folder": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"folder_id":        {Type: "string"},
				"qc_status":        {Type: "integer", Enum: statusEnum},
				"qc_level":         {Type: "string", Enum: levelEnum},
				"qc_by":            {Type: "string"},
				"qc_info":          {Type: "string"},
				"qc_ip":            {Type: "string"},
				"claimed_at":       {Type: "string", Format: "date-time"},
				"lease_expires_at": {Type: "string", Format: "date-time"},
				"updated_at":       {Type: "string", Format: "date-time"},
			},
		},
		"File": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"file_id":    {Type: "string"},
				"file_name":  {Type: "string"},
				"file_qc":    {Type: "integer", Enum: severityEnum},
				"qc_info":    {Type: "string"},
				"qc_by":      {Type: "string"},
				"updated_at": {Type: "string", Format: "date-time"},
			},
		},
		"CatalogFolder": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"folder_id":      {Type: "string"},
				"project_id":     {Type: "integer"},
				"project_folder": {Type: "string"},
				"status":         {Type: "integer"},
				"error_flag":     {Type: "boolean"},
				"date":           {Type: "string", Format: "date-time"},
				"file_count":     {Type: "integer"},
			},
		},
		"Settings": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"project_id":            {Type: "integer"},
				"qc_level":              {Type: "string", Enum: levelEnum},
				"qc_percent":            {Type: "number"},
				"qc_normal_percent":     {Type: "number"},
				"qc_reduced_percent":    {Type: "number"},
				"qc_tightened_percent":  {Type: "number"},
				"qc_threshold_critical": {Type: "number", Minimum: openapi.Bound(0)},
				"qc_threshold_major":    {Type: "number", Minimum: openapi.Bound(0)},
				"qc_threshold_minor":    {Type: "number", Minimum: openapi.Bound(0)},
				"qc_filenames":          {Type: "string", Description: "Regular expression sampled file names must match"},
				"updated_at":            {Type: "string", Format: "date-time"},
			},
		},
		"ClaimResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"granted":     {Type: "boolean"},
				"owner":       {Type: "string", Description: "Reviewer holding the claim"},
				"folder":      openapi.SchemaRef("Folder"),
				"sampled":     {Type: "boolean", Description: "A new sample was drawn by this request"},
				"sample_size": {Type: "integer"},
			},
		},
		"Summary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"folder":   openapi.SchemaRef("Folder"),
				"catalog":  openapi.SchemaRef("CatalogFolder"),
				"settings": openapi.SchemaRef("Settings"),
				"evaluation": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"counts":          counts,
						"thresholds":      thresholds,
						"all_reviewed":    {Type: "boolean"},
						"proposed_result": {Type: "boolean", Description: "True when every count is within its threshold"},
					},
				},
				"issues": openapi.ArrayOf("File"),
			},
		},
		"LevelChange": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"project_id": {Type: "integer"},
				"previous":   {Type: "string", Enum: levelEnum},
				"current":    {Type: "string", Enum: levelEnum},
				"qc_percent": {Type: "number"},
				"history":    {Type: "array", Items: &openapi.Schema{Type: "integer", Enum: statusEnum[:2]}},
			},
		},
		"FinalizeResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"folder": openapi.SchemaRef("Folder"),
				"level":  openapi.SchemaRef("LevelChange"),
			},
		},
		"Overview": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"settings":    openapi.SchemaRef("Settings"),
				"total":       {Type: "integer"},
				"passed":      {Type: "integer"},
				"failed":      {Type: "integer"},
				"in_progress": {Type: "integer"},
				"not_started": {Type: "integer"},
				"next":        openapi.SchemaRef("CatalogFolder"),
			},
		},
		"FolderStatus": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"folder_id":      {Type: "string"},
				"project_folder": {Type: "string"},
				"date":           {Type: "string", Format: "date-time"},
				"qc_status":      {Type: "integer", Enum: statusEnum},
				"qc_level":       {Type: "string", Enum: levelEnum},
				"qc_by":          {Type: "string"},
				"updated_at":     {Type: "string", Format: "date-time"},
			},
		},
		"FolderStatusPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        openapi.ArrayOf("FolderStatus"),
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}
