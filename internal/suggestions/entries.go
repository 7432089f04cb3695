package suggestions

import "etlinspector/pkg/contracts/domain"

type propertySpec struct {
	key, value string
}

type processorSpec struct {
	name        string
	description string
	properties  []propertySpec
}

type entrySpec struct {
	category   domain.Category
	problem    string
	processors []processorSpec
	flow       []string
	remedies   []string
	script     string
}

const (
	csvReader = "CSVReader"
	csvWriter = "CSVRecordSetWriter"
)

func readerWriter(extra ...propertySpec) []propertySpec {
	return append([]propertySpec{
		{"Record Reader", csvReader},
		{"Record Writer", csvWriter},
	}, extra...)
}

var builtinEntries = []entrySpec{
	{
		category: domain.CategoryNulls,
		problem:  "Null or blank values",
		processors: []processorSpec{
			{
				name:        "UpdateRecord",
				description: "Fill missing values with a default",
				properties: readerWriter(
					propertySpec{"Replacement Value Strategy", "Record Path Value"},
					propertySpec{"/{{.Field}}", "coalesce(/{{.Field}}, 'UNKNOWN')"},
				),
			},
			{
				name:        "QueryRecord",
				description: "Drop records where the field is missing",
				properties: readerWriter(
					propertySpec{"complete", `SELECT * FROM FLOWFILE WHERE {{sql .Column}} IS NOT NULL AND TRIM({{sql .Column}}) <> ''`},
				),
			},
			{
				name:        "ValidateRecord",
				description: "Route records missing required fields to invalid",
				properties: readerWriter(
					propertySpec{"Schema Access Strategy", "Use 'Schema Text' Property"},
					propertySpec{"Schema Text", `Avro schema declaring "{{.Field}}" as a non-null field`},
					propertySpec{"Allow Extra Fields", "true"},
				),
			},
		},
		flow: []string{
			"GetFile reads the Excel/CSV file",
			"ConvertExcelToCSVProcessor converts workbooks when needed",
			"ValidateRecord splits valid and invalid records",
			"UpdateRecord fills missing values",
			"PutFile writes the corrected file",
		},
		remedies: []string{
			"Fill missing values with a default",
			"Drop records that miss required values",
			"Map missing categorical values to an UNKNOWN bucket",
		},
		script: `import org.apache.commons.io.IOUtils
import java.nio.charset.StandardCharsets

def targets = [{{range $i, $c := .Columns}}{{if $i}}, {{end}}{{groovy $c}}{{end}}] as Set
def placeholder = 'UNKNOWN'

def flowFile = session.get()
if (!flowFile) return

flowFile = session.write(flowFile, { inputStream, outputStream ->
    def lines = IOUtils.toString(inputStream, StandardCharsets.UTF_8).split('\n')
    def writer = new BufferedWriter(new OutputStreamWriter(outputStream, StandardCharsets.UTF_8))
    def header = lines[0].split(',', -1)
    def indexes = header.findIndexValues { targets.isEmpty() || targets.contains(it.trim()) }
    writer.writeLine(lines[0])
    lines.drop(1).each { line ->
        def cells = line.split(',', -1)
        indexes.each { i ->
            if (i < cells.length && cells[i].trim().isEmpty()) {
                cells[i] = placeholder
            }
        }
        writer.writeLine(cells.join(','))
    }
    writer.flush()
} as StreamCallback)

session.transfer(flowFile, REL_SUCCESS)
`,
	},
	{
		category: domain.CategoryTypeConsistency,
		problem:  "Inconsistent value types",
		processors: []processorSpec{
			{
				name:        "ConvertRecord",
				description: "Coerce records to a schema with one type per field",
				properties: readerWriter(
					propertySpec{"Schema Access Strategy", "Use 'Schema Name' Property"},
					propertySpec{"Schema Registry", "AvroSchemaRegistry"},
					propertySpec{"Schema Name", "cleaned"},
				),
			},
			{
				name:        "ValidateRecord",
				description: "Route values that do not fit the declared type",
				properties: readerWriter(
					propertySpec{"Schema Access Strategy", "Use 'Schema Text' Property"},
					propertySpec{"Strict Type Checking", "true"},
				),
			},
			{
				name:        "QueryRecord",
				description: "Separate rows whose field is not numeric",
				properties: readerWriter(
					propertySpec{"non_numeric", `SELECT * FROM FLOWFILE WHERE NOT ({{sql .Column}} SIMILAR TO '-?[0-9]+(\.[0-9]+)?')`},
				),
			},
		},
		flow: []string{
			"GetFile reads the source file",
			"ConvertRecord infers and applies a schema",
			"ValidateRecord routes records that break the schema",
			"UpdateRecord fixes or clears invalid values",
			"MergeRecord joins the corrected records",
			"PutFile writes the result",
		},
		remedies: []string{
			"Standardise each column on a single type",
			"Convert with explicit error handling instead of implicit casts",
			"Split mixed content into separate columns",
		},
		script: `import org.apache.commons.io.IOUtils
import java.nio.charset.StandardCharsets

def targets = [{{range $i, $c := .Columns}}{{if $i}}, {{end}}{{groovy $c}}{{end}}] as Set

def normalise(String value) {
    if (value == null || value.trim().isEmpty()) return ''
    def v = value.trim()
    if (v ==~ /-?\d+(\.\d+)?/) return new BigDecimal(v).toPlainString()
    for (fmt in ['yyyy-MM-dd', 'dd/MM/yyyy', 'MM/dd/yyyy']) {
        try {
            return Date.parse(fmt, v).format('yyyy-MM-dd')
        } catch (ignored) {
        }
    }
    return v
}

def flowFile = session.get()
if (!flowFile) return

flowFile = session.write(flowFile, { inputStream, outputStream ->
    def lines = IOUtils.toString(inputStream, StandardCharsets.UTF_8).split('\n')
    def writer = new BufferedWriter(new OutputStreamWriter(outputStream, StandardCharsets.UTF_8))
    def header = lines[0].split(',', -1)
    def indexes = header.findIndexValues { targets.contains(it.trim()) }
    writer.writeLine(lines[0])
    lines.drop(1).each { line ->
        def cells = line.split(',', -1)
        indexes.each { i -> if (i < cells.length) cells[i] = normalise(cells[i]) }
        writer.writeLine(cells.join(','))
    }
    writer.flush()
} as StreamCallback)

session.transfer(flowFile, REL_SUCCESS)
`,
	},
	{
		category: domain.CategoryDuplicates,
		problem:  "Duplicate records",
		processors: []processorSpec{
			{
				name:        "DeduplicateRecord",
				description: "Drop repeated records within a file",
				properties: readerWriter(
					propertySpec{"Deduplication Strategy", "Single File"},
					propertySpec{"Record Hashing Algorithm", "SHA-256"},
				),
			},
			{
				name:        "DetectDuplicate",
				description: "Flag FlowFiles already seen across runs",
				properties: []propertySpec{
					{"Cache Entry Identifier", "${hash.value}"},
					{"Age Off Duration", "24 hours"},
					{"Distributed Cache Service", "DistributedMapCacheClientService"},
				},
			},
			{
				name:        "QueryRecord",
				description: "Keep distinct rows with SQL",
				properties: readerWriter(
					propertySpec{"distinct", "SELECT DISTINCT * FROM FLOWFILE"},
				),
			},
		},
		flow: []string{
			"GetFile reads the file with duplicates",
			"DeduplicateRecord keeps the first occurrence of each record",
			"UpdateAttribute records how many rows were dropped",
			"PutFile writes the distinct records",
		},
		remedies: []string{
			"Drop exact duplicate rows",
			"Keep only the first occurrence",
			"Aggregate duplicates with grouping functions",
		},
		script: `import org.apache.commons.io.IOUtils
import java.nio.charset.StandardCharsets

def flowFile = session.get()
if (!flowFile) return

flowFile = session.write(flowFile, { inputStream, outputStream ->
    def lines = IOUtils.toString(inputStream, StandardCharsets.UTF_8).split('\n')
    def writer = new BufferedWriter(new OutputStreamWriter(outputStream, StandardCharsets.UTF_8))
    def seen = [] as Set
    writer.writeLine(lines[0])
    lines.drop(1).each { line ->
        if (!line.trim().isEmpty() && seen.add(line)) {
            writer.writeLine(line)
        }
    }
    writer.flush()
} as StreamCallback)

session.transfer(flowFile, REL_SUCCESS)
`,
	},
	{
		category: domain.CategorySpecialCharacters,
		problem:  "Special characters",
		processors: []processorSpec{
			{
				name:        "UpdateRecord",
				description: "Strip disallowed characters from the field",
				properties: readerWriter(
					propertySpec{"Replacement Value Strategy", "Record Path Value"},
					propertySpec{"/{{.Field}}", `replaceRegex(/{{.Field}}, '[^\\w\\s.,@-]', '')`},
				),
			},
			{
				name:        "ReplaceText",
				description: "Strip disallowed characters from the whole content",
				properties: []propertySpec{
					{"Search Value", `[^\w\s.,@-]`},
					{"Replacement Value", "(empty string)"},
					{"Replacement Strategy", "Regex Replace"},
					{"Evaluation Mode", "Line-by-Line"},
					{"Character Set", "UTF-8"},
				},
			},
			{
				name:        "ConvertCharacterSet",
				description: "Re-encode legacy input as UTF-8 before cleaning",
				properties: []propertySpec{
					{"Input Character Set", "windows-1252"},
					{"Output Character Set", "UTF-8"},
				},
			},
		},
		flow: []string{
			"GetFile reads the file",
			"ConvertCharacterSet converts the content to UTF-8",
			"UpdateRecord strips disallowed characters",
			"ValidateRecord checks the cleaned records",
			"PutFile writes the clean file",
		},
		remedies: []string{
			"Remove disallowed characters",
			"Replace accented letters with ASCII equivalents",
			"Normalise text with Unicode decomposition before loading",
		},
		script: `import java.text.Normalizer
import org.apache.commons.io.IOUtils
import java.nio.charset.StandardCharsets

def targets = [{{range $i, $c := .Columns}}{{if $i}}, {{end}}{{groovy $c}}{{end}}] as Set

def clean(String text) {
    if (!text) return ''
    def s = Normalizer.normalize(text, Normalizer.Form.NFD).replaceAll(/\p{M}/, '')
    s = s.replaceAll(/[^\w\s.,@-]/, '')
    return s.replaceAll(/\s+/, ' ').trim()
}

def flowFile = session.get()
if (!flowFile) return

flowFile = session.write(flowFile, { inputStream, outputStream ->
    def lines = IOUtils.toString(inputStream, StandardCharsets.UTF_8).split('\n')
    def writer = new BufferedWriter(new OutputStreamWriter(outputStream, StandardCharsets.UTF_8))
    def header = lines[0].split(',', -1)
    def indexes = header.findIndexValues { targets.contains(it.trim()) }
    writer.writeLine(lines[0])
    lines.drop(1).each { line ->
        def cells = line.split(',', -1)
        indexes.each { i -> if (i < cells.length) cells[i] = clean(cells[i]) }
        writer.writeLine(cells.join(','))
    }
    writer.flush()
} as StreamCallback)

session.transfer(flowFile, REL_SUCCESS)
`,
	},
	{
		category: domain.CategoryWhitespace,
		problem:  "Extra whitespace",
		processors: []processorSpec{
			{
				name:        "UpdateRecord",
				description: "Trim the field and collapse inner spaces",
				properties: readerWriter(
					propertySpec{"Replacement Value Strategy", "Record Path Value"},
					propertySpec{"/{{.Field}}", `trim(replaceRegex(/{{.Field}}, '\\s+', ' '))`},
				),
			},
			{
				name:        "ReplaceText",
				description: "Collapse repeated spaces in the whole content",
				properties: []propertySpec{
					{"Search Value", `[ \t]{2,}`},
					{"Replacement Value", " "},
					{"Replacement Strategy", "Regex Replace"},
					{"Evaluation Mode", "Line-by-Line"},
				},
			},
			{
				name:        "ExecuteScript",
				description: "Trim every cell with Groovy",
				properties: []propertySpec{
					{"Script Engine", "Groovy"},
					{"Script Body", "see the Groovy snippet for this category"},
				},
			},
		},
		flow: []string{
			"GetFile reads the file",
			"UpdateRecord trims each affected field",
			"ReplaceText collapses repeated spaces",
			"ValidateRecord checks the cleaned records",
			"PutFile writes the clean file",
		},
		remedies: []string{
			"Trim leading and trailing whitespace",
			"Collapse repeated spaces into one",
			"Trim every text column on ingest",
		},
		script: `import org.apache.commons.io.IOUtils
import java.nio.charset.StandardCharsets

def targets = [{{range $i, $c := .Columns}}{{if $i}}, {{end}}{{groovy $c}}{{end}}] as Set

def flowFile = session.get()
if (!flowFile) return

flowFile = session.write(flowFile, { inputStream, outputStream ->
    def lines = IOUtils.toString(inputStream, StandardCharsets.UTF_8).split('\n')
    def writer = new BufferedWriter(new OutputStreamWriter(outputStream, StandardCharsets.UTF_8))
    def header = lines[0].split(',', -1)
    def indexes = header.findIndexValues { targets.isEmpty() || targets.contains(it.trim()) }
    writer.writeLine(lines[0])
    lines.drop(1).each { line ->
        def cells = line.split(',', -1)
        indexes.each { i -> if (i < cells.length) cells[i] = cells[i].trim().replaceAll(/\s+/, ' ') }
        writer.writeLine(cells.join(','))
    }
    writer.flush()
} as StreamCallback)

session.transfer(flowFile, REL_SUCCESS)
`,
	},
	{
		category: domain.CategoryDateFormats,
		problem:  "Inconsistent date formats",
		processors: []processorSpec{
			{
				name:        "UpdateRecord",
				description: "Rewrite the field as an ISO date",
				properties: readerWriter(
					propertySpec{"Replacement Value Strategy", "Record Path Value"},
					propertySpec{"/{{.Field}}", "format(toDate(/{{.Field}}, 'dd/MM/yyyy'), 'yyyy-MM-dd')"},
				),
			},
			{
				name:        "ConvertRecord",
				description: "Write dates with one schema-wide format",
				properties: readerWriter(
					propertySpec{"Date Format", "yyyy-MM-dd"},
					propertySpec{"Time Format", "HH:mm:ss"},
					propertySpec{"Timestamp Format", "yyyy-MM-dd HH:mm:ss"},
				),
			},
			{
				name:        "ExecuteScript",
				description: "Parse several layouts with Groovy",
				properties: []propertySpec{
					{"Script Engine", "Groovy"},
					{"Script Body", "see the Groovy snippet for this category"},
				},
			},
		},
		flow: []string{
			"GetFile reads the file",
			"ExecuteScript parses every known layout into ISO dates",
			"ConvertRecord applies the date schema",
			"ValidateRecord rejects dates that did not parse",
			"PutFile writes the standardised file",
		},
		remedies: []string{
			"Standardise on ISO 8601 (YYYY-MM-DD)",
			"Parse with an ordered list of known layouts",
			"Agree on one layout with the data owner at the source",
		},
		script: `import java.time.LocalDate
import java.time.format.DateTimeFormatter
import java.time.format.DateTimeParseException
import org.apache.commons.io.IOUtils
import java.nio.charset.StandardCharsets

def targets = [{{range $i, $c := .Columns}}{{if $i}}, {{end}}{{groovy $c}}{{end}}] as Set

def toIso(String value) {
    if (!value?.trim()) return value
    def layouts = ['yyyy-M-d', 'd/M/yyyy', 'M/d/yyyy', 'yyyy/M/d', 'd-M-yyyy', 'M-d-yyyy', 'd.M.yyyy', 'yyyy.M.d']
    for (layout in layouts) {
        try {
            return LocalDate.parse(value.trim(), DateTimeFormatter.ofPattern(layout)).format(DateTimeFormatter.ISO_LOCAL_DATE)
        } catch (DateTimeParseException ignored) {
        }
    }
    return value
}

def flowFile = session.get()
if (!flowFile) return

flowFile = session.write(flowFile, { inputStream, outputStream ->
    def lines = IOUtils.toString(inputStream, StandardCharsets.UTF_8).split('\n')
    def writer = new BufferedWriter(new OutputStreamWriter(outputStream, StandardCharsets.UTF_8))
    def header = lines[0].split(',', -1)
    def indexes = header.findIndexValues { targets.contains(it.trim()) }
    writer.writeLine(lines[0])
    lines.drop(1).each { line ->
        def cells = line.split(',', -1)
        indexes.each { i -> if (i < cells.length) cells[i] = toIso(cells[i]) }
        writer.writeLine(cells.join(','))
    }
    writer.flush()
} as StreamCallback)

session.transfer(flowFile, REL_SUCCESS)
`,
	},
	{
		category: domain.CategoryColumnNames,
		problem:  "Problematic column names",
		processors: []processorSpec{
			{
				name:        "JoltTransformJSON",
				description: "Rename fields with a shift specification",
				properties: []propertySpec{
					{"Jolt Transformation DSL", "Shift"},
					{"Jolt Specification", `{ {{json .Column}}: {{json .Field}}, "*": "&" }`},
				},
			},
			{
				name:        "UpdateAttribute",
				description: "Record the rename mapping as attributes",
				properties: []propertySpec{
					{"column.mapping.{{.Field}}", "{{.Column}}"},
				},
			},
			{
				name:        "ExecuteScript",
				description: "Rewrite the header line with Groovy",
				properties: []propertySpec{
					{"Script Engine", "Groovy"},
					{"Script Body", "see the Groovy snippet for this category"},
				},
			},
		},
		flow: []string{
			"GetFile reads the file",
			"ExecuteScript rewrites the header with clean names",
			"UpdateAttribute stores the old to new mapping",
			"PutFile writes the renamed file",
		},
		remedies: []string{
			"Replace spaces with underscores",
			"Remove special characters",
			"Use snake_case throughout",
			"Avoid names that start with a digit",
		},
		script: `import java.text.Normalizer
import org.apache.commons.io.IOUtils
import java.nio.charset.StandardCharsets

def renames = {{if .Columns}}[{{range $i, $c := .Columns}}{{if $i}}, {{end}}({{groovy $c}}): {{groovy (clean $c)}}{{end}}]{{else}}[:]{{end}}

def cleanName(String name) {
    def s = Normalizer.normalize(name ?: '', Normalizer.Form.NFD).replaceAll(/\p{M}/, '')
    s = s.replaceAll(/[^a-zA-Z0-9]/, '_').replaceAll(/_+/, '_').replaceAll(/^_|_$/, '')
    if (s ==~ /^\d.*/) s = 'col_' + s
    return s ? s.toLowerCase() : 'column'
}

def flowFile = session.get()
if (!flowFile) return

flowFile = session.write(flowFile, { inputStream, outputStream ->
    def lines = IOUtils.toString(inputStream, StandardCharsets.UTF_8).split('\n')
    def writer = new BufferedWriter(new OutputStreamWriter(outputStream, StandardCharsets.UTF_8))
    def header = lines[0].split(',', -1).collect { renames[it.trim()] ?: cleanName(it.trim()) }
    writer.writeLine(header.join(','))
    lines.drop(1).each { writer.writeLine(it) }
    writer.flush()
} as StreamCallback)

renames.each { oldName, newName ->
    flowFile = session.putAttribute(flowFile, 'column.mapping.' + newName, oldName)
}

session.transfer(flowFile, REL_SUCCESS)
`,
	},
}
