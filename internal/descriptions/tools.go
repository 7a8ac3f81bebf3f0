package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Document tools
	FeaturesDescription = `Build the full text feature records of a medical report PDF.

**When to use:** Preparing training data or inspecting what the labelling model sees for a report.

**Why it's useful:** Every text token of the layout becomes one record with its lexical, layout and position features, in the format the sequence labeller reads.

**Examples:**
• Inspect a report: "Show the feature records of cr_cardio_2024.pdf"
• Limit to the first page: "Features of bilan.pdf for pages 1"

**Best practices:** Use the pages argument on long reports; records are returned verbatim, one per line.`

	LabelDescription = `Label a medical report PDF and return its TEI rendition.

**When to use:** Need the structure of a report: title, sections, paragraphs, lists, notes, figures and tables.

**Why it's useful:** Runs the configured labelling model over the feature records and converts the labels into a balanced TEI fragment, with figure and table spans and the callout numbering style.

**Examples:**
• Structure a report: "Label compte-rendu-0412.pdf"
• Produce training files: "Label bilan.pdf and write the training files"

**Common workflows:**
1. Annotation: medreport_label with write → correct the TEI → retrain the model
2. Review: medreport_features → medreport_label → compare records and TEI

**Best practices:** Without a configured tagger only the features and a blank TEI are produced.`

	BatchDescription = `Process every report of a directory and write the training files.

**When to use:** Creating a training corpus from a folder of reports.

**Why it's useful:** Reports are processed concurrently; a failing report is listed in the summary without stopping the others.

**Examples:**
• Whole folder: "Generate training data for /data/reports"
• Subset: "Process the reports of /data/reports matching cardio"`

	FindDescription = `List the PDF reports of a directory, optionally filtered by name.

**When to use:** Discovering which reports are available before processing them.

**Examples:**
• "List the reports in /data/reports"
• "Find reports matching bilan sanguin"`

	// Text tools
	PageRangeDescription = `Normalise a page range to the first--last form.

**When to use:** Cleaning page ranges found in report references.

**Examples:**
• "433-8" becomes "433--438"
• "L74-5" becomes "L74--75"
• "pp. 12" becomes "12"`

	DatelineDescription = `Build dateline feature records from "token label" lines.

**When to use:** Preparing dateline training data, such as "Paris, le 12 mars 2024".

**Best practices:** Separate sequences with a blank line; a token without a label gets the 0 label.`

	NERDescription = `Build named entity feature records from plain text.

**When to use:** Preparing NER training data for the people, places and contacts of a report.

**Best practices:** Send the text of one section at a time; line breaks are kept as line features.`

	AlignDescription = `Attach the labels of annotated "token label" lines to raw feature records.

**When to use:** Turning an annotated training file into tagger input after the features changed.

**Best practices:** Send the records of one document; a document whose last records drift from the labels is reported as not accepted.`

	// Server tools
	ServerInfoDescription = `Get server information, configuration, available tools and the reports of the input directory.

**When to use:** First call in a session, to learn what the server can do and where it reads and writes.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"medreport_features":    FeaturesDescription,
	"medreport_label":       LabelDescription,
	"medreport_batch":       BatchDescription,
	"medreport_find":        FindDescription,
	"medreport_page_range":  PageRangeDescription,
	"medreport_dateline":    DatelineDescription,
	"medreport_ner":         NERDescription,
	"medreport_align":       AlignDescription,
	"medreport_server_info": ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all available tools
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
