package mcpserver

// ImportFormat describes the lead files accepted by import_leads and the
// inbox watcher.
const ImportFormat = `# Flipdesk Lead Import Format

Lead files are CSV (` + "`" + `.csv` + "`" + `) or YAML (` + "`" + `.yaml` + "`" + `, ` + "`" + `.yml` + "`" + `).
The extension selects the parser.

## Rules

1. **A file is all-or-nothing.** One invalid row rejects the whole file.
2. **Identical content is imported once.** Re-sending the same bytes is reported as a duplicate.
3. **address is required** on every row. Every other field is optional.
4. **status** is one of new, contacted, follow_up, negotiation, under_contract,
   closed, dead (case-insensitive, default new). Leads in negotiation or
   under_contract become opportunities on the next conversion pass.
5. **estimated_value** is a non-negative amount; ` + "`" + `$250,000` + "`" + ` and ` + "`" + `250000.00` + "`" + ` both work.
6. **source** defaults to ` + "`" + `import:<file name>` + "`" + `.

## CSV

The first row is a header. Header names are case-insensitive; spaces and dashes
count as underscores. Accepted columns and aliases:

| Field           | Headers                              |
|-----------------|--------------------------------------|
| address         | address, street, property_address    |
| city            | city                                 |
| state           | state                                |
| zip_code        | zip, zip_code, zipcode               |
| owner_name      | owner, owner_name                    |
| owner_phone     | phone, owner_phone                   |
| owner_email     | email, owner_email                   |
| estimated_value | value, estimated_value               |
| status          | status                               |
| notes           | notes                                |
| source          | source                               |

Unknown columns are ignored. Blank rows are skipped.

` + "```" + `csv
Address,City,State,Zip,Owner,Phone,Value,Status
12 Oak Ave,Springfield,IL,62701,Pat Doe,555-0100,"$180,000",negotiation
9 Elm St,Springfield,IL,62702,Lee Roe,,,new
` + "```" + `

## YAML

Either a top-level list or a document with a ` + "`" + `leads` + "`" + ` list, using the
field names from the table above.

` + "```" + `yaml
leads:
  - address: 12 Oak Ave
    city: Springfield
    state: IL
    owner_name: Pat Doe
    estimated_value: 180000
    status: negotiation
  - address: 9 Elm St
` + "```" + `
`
