// Package services contains business logic implementations.
package services

import (
	"regexp"
	"strings"

	"github.com/TFMV/sqlgate/pkg/models"
)

// StatementType represents the type of SQL statement.
type StatementType int

const (
	StatementTypeDDL     StatementType = iota // CREATE, DROP, ALTER, TRUNCATE
	StatementTypeDML                          // INSERT, UPDATE, DELETE, REPLACE, MERGE
	StatementTypeDQL                          // SELECT, WITH...SELECT
	StatementTypeTCL                          // COMMIT, ROLLBACK, SAVEPOINT, BEGIN
	StatementTypeDCL                          // GRANT, REVOKE
	StatementTypeUtility                      // SHOW, DESCRIBE, EXPLAIN, CALL, EXEC
	StatementTypeOther                        // Unrecognized statements
)

// String returns the string representation of the statement type.
func (st StatementType) String() string {
	switch st {
	case StatementTypeDDL:
		return "DDL"
	case StatementTypeDML:
		return "DML"
	case StatementTypeDQL:
		return "DQL"
	case StatementTypeTCL:
		return "TCL"
	case StatementTypeDCL:
		return "DCL"
	case StatementTypeUtility:
		return "UTILITY"
	case StatementTypeOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// Denial reasons returned to callers.
const (
	ReasonEmpty              = "No SQL query provided"
	ReasonNotSelect          = "Only read-only SELECT queries are allowed"
	ReasonDisallowedKeywords = "Query contains disallowed keywords"
)

// DeniedKeywords are rejected anywhere in a statement as whole words.
var DeniedKeywords = []string{
	"insert", "update", "delete", "merge", "drop",
	"alter", "grant", "execute", "dbms_", "utl_",
}

// StatementClassifier gates SQL text before it reaches the database.
//
// It is a syntactic filter, not a parser. The keyword scan runs over the raw
// text, so a denied word inside a string literal or comment still denies, and
// anything the denylist does not name (vendor procedures, hints, comment
// tricks) is not caught. Word boundaries are RE2 \b, which treats letters,
// digits and '_' as word characters: "dropoff" does not match "drop", and
// "dbms_output" does not match "dbms_" because '_' and 'o' are both word
// characters.
type StatementClassifier struct {
	denylist *regexp.Regexp

	ddlPatterns     []*regexp.Regexp
	dmlPatterns     []*regexp.Regexp
	dqlPatterns     []*regexp.Regexp
	tclPatterns     []*regexp.Regexp
	dclPatterns     []*regexp.Regexp
	utilityPatterns []*regexp.Regexp
}

// NewStatementClassifier creates a classifier with the fixed denylist.
func NewStatementClassifier() *StatementClassifier {
	c := &StatementClassifier{
		denylist: regexp.MustCompile(`(?i)\b(` + strings.Join(DeniedKeywords, "|") + `)\b`),
	}
	c.initializePatterns()
	return c
}

// initializePatterns compiles the leading-keyword patterns used for labelling.
func (c *StatementClassifier) initializePatterns() {
	c.ddlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*CREATE\s+`),
		regexp.MustCompile(`(?i)^\s*DROP\s+`),
		regexp.MustCompile(`(?i)^\s*ALTER\s+`),
		regexp.MustCompile(`(?i)^\s*TRUNCATE\s+`),
		regexp.MustCompile(`(?i)^\s*RENAME\s+`),
		regexp.MustCompile(`(?i)^\s*COMMENT\s+ON\s+`),
	}

	c.dmlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*INSERT\s+`),
		regexp.MustCompile(`(?i)^\s*UPDATE\s+`),
		regexp.MustCompile(`(?i)^\s*DELETE\s+`),
		regexp.MustCompile(`(?i)^\s*REPLACE\s+`),
		regexp.MustCompile(`(?i)^\s*MERGE\s+`),
		regexp.MustCompile(`(?i)^\s*UPSERT\s+`),
	}

	c.dqlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*SELECT\b`),
		regexp.MustCompile(`(?i)^\s*WITH\s+.*\bSELECT\b`),
		regexp.MustCompile(`(?i)^\s*\(\s*SELECT\b`),
	}

	c.tclPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*BEGIN\b`),
		regexp.MustCompile(`(?i)^\s*START\s+TRANSACTION\b`),
		regexp.MustCompile(`(?i)^\s*COMMIT\b`),
		regexp.MustCompile(`(?i)^\s*ROLLBACK\b`),
		regexp.MustCompile(`(?i)^\s*SAVEPOINT\s+`),
		regexp.MustCompile(`(?i)^\s*SET\s+TRANSACTION\s+`),
	}

	c.dclPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*GRANT\s+`),
		regexp.MustCompile(`(?i)^\s*REVOKE\s+`),
	}

	c.utilityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*SHOW\s+`),
		regexp.MustCompile(`(?i)^\s*DESCRIBE\s+`),
		regexp.MustCompile(`(?i)^\s*DESC\s+`),
		regexp.MustCompile(`(?i)^\s*EXPLAIN\s+`),
		regexp.MustCompile(`(?i)^\s*CALL\s+`),
		regexp.MustCompile(`(?i)^\s*EXEC(UTE)?\s+`),
		regexp.MustCompile(`(?i)^\s*SET\s+`),
		regexp.MustCompile(`(?i)^\s*PRAGMA\s+`),
	}
}

// Classify decides whether sql may be executed.
func (c *StatementClassifier) Classify(sql string) models.Verdict {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return models.Deny(ReasonEmpty)
	}

	if !strings.HasPrefix(strings.ToLower(trimmed), "select") {
		return models.Deny(ReasonNotSelect)
	}

	if c.denylist.MatchString(sql) {
		return models.Deny(ReasonDisallowedKeywords)
	}

	return models.Allow()
}

// MatchedKeyword returns the first denied keyword found in sql, lower-cased,
// or "" when there is none.
func (c *StatementClassifier) MatchedKeyword(sql string) string {
	m := c.denylist.FindStringSubmatch(sql)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// ClassifyStatement returns a coarse statement type from the leading keyword.
// It only labels logs and metrics; Classify makes the decision.
func (c *StatementClassifier) ClassifyStatement(sql string) StatementType {
	groups := []struct {
		patterns []*regexp.Regexp
		typ      StatementType
	}{
		{c.ddlPatterns, StatementTypeDDL},
		{c.dmlPatterns, StatementTypeDML},
		{c.dqlPatterns, StatementTypeDQL},
		{c.tclPatterns, StatementTypeTCL},
		{c.dclPatterns, StatementTypeDCL},
		{c.utilityPatterns, StatementTypeUtility},
	}

	for _, g := range groups {
		for _, pattern := range g.patterns {
			if pattern.MatchString(sql) {
				return g.typ
			}
		}
	}

	return StatementTypeOther
}
