package classify

// classifyInstruction asks the model to classify a document into the closed
// category set and extract its content as machine-parseable JSON. The item
// schema varies by category; amounts are kept as strings so currency
// formatting survives the round trip.
const classifyInstruction = `You are a document analysis engine. Classify the document and extract its content.

Respond with a single JSON object and nothing else:

{
  "category": "schedule" | "invoice" | "healthcare" | "unknown",
  "summary": "<complete human-readable text representation of the document content>",
  "structured": {
    "title": "<short document title>",
    "items": [ ... ],
    "totals": { "<label>": "<value>", ... }
  }
}

Item schema by category:
- schedule: {"code", "title", "days", "time", "location"}
- invoice:  {"date", "description", "amount"}
- healthcare: {"service", "billed", "allowed", "paid", "owed"}
- unknown: omit "structured" entirely.

Rules:
- Every item field is a string. Keep currency symbols and formatting as printed.
- "summary" must stand alone: a reader should understand the document from it
  without the original file.
- If the document fits none of the first three categories, use "unknown" and
  still write a faithful summary.`
