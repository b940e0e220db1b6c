package scenarios

// searchResponseSchema is the contract for claims-search API
// responses. Both the search and recent-claims endpoints return this
// shape.
const searchResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["claims", "total"],
  "properties": {
    "claims": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["claimNumber", "status"],
        "properties": {
          "claimNumber": {"type": "string"},
          "customerId": {"type": "string"},
          "status": {
            "type": "string",
            "enum": ["OPEN", "IN_REVIEW", "APPROVED", "DENIED", "CLOSED"]
          },
          "submittedAt": {"type": "string"},
          "amount": {"type": "number"}
        }
      }
    },
    "total": {"type": "integer", "minimum": 0},
    "page": {"type": "integer", "minimum": 1},
    "pageSize": {"type": "integer", "minimum": 1}
  }
}`
