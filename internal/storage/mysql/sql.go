package mysql

const insertDocumentSQL = `
INSERT INTO proposal_documents
  (id, proposal_id, filename, sha256, size_bytes, pages, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// Re-sending the same dispatch id only refreshes its outcome.
const insertDispatchSQL = `
INSERT INTO email_dispatches
  (id, proposal_id, recipient, status, error, created_at)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status = VALUES(status),
  error  = VALUES(error)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listDocumentsSQL = `
SELECT id, proposal_id, filename, sha256, size_bytes, pages, created_at
FROM proposal_documents
WHERE proposal_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const listDispatchesSQL = `
SELECT id, proposal_id, recipient, status, error, created_at
FROM email_dispatches
WHERE proposal_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
