// Package form4 extracts structured transactions from raw SEC Form 4 filing
// documents. The source is third-party-controlled and loosely validated, so
// the policy throughout is degrade, never abort: missing substructures
// default, malformed transaction entries are skipped, and a document without
// a well-formed embedded XML block yields an unknown filer and no
// transactions rather than an error.
package form4

import (
	"context"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"insider-monitor/internal/logger"
	"insider-monitor/internal/types"
)

const (
	xmlOpen  = "<XML>"
	xmlClose = "</XML>"

	unknown = "Unknown"
)

// Parse extracts the filer identity and all non-derivative transactions from
// a raw filing document.
func Parse(ctx context.Context, doc []byte) (types.FilerIdentity, []types.Transaction) {
	identity := types.FilerIdentity{Name: unknown, Title: unknown}

	block := extractXMLBlock(string(doc))
	if block == "" {
		logger.Debug(ctx, "No embedded XML block in filing document")
		return identity, nil
	}

	root, err := xmlquery.Parse(strings.NewReader(block))
	if err != nil {
		logger.Warn(ctx, "Embedded XML block failed to parse", "error", err)
		return identity, nil
	}

	if name := firstText(root, "//reportingOwner//rptOwnerName", "//reportingOwner//reportingOwnerName"); name != "" {
		identity.Name = name
	}
	if title := firstText(root, "//officerTitle"); title != "" {
		identity.Title = title
	}

	var txs []types.Transaction
	for i, node := range xmlquery.Find(root, "//nonDerivativeTransaction") {
		tx, ok := parseTransaction(node, identity)
		if !ok {
			logger.Warn(ctx, "Skipping malformed transaction entry", "index", i)
			continue
		}
		txs = append(txs, tx)
	}

	return identity, txs
}

// parseTransaction extracts one transaction. Entries without coding or
// amounts substructures are structurally malformed and rejected; missing
// leaf values inside an otherwise valid entry default instead.
func parseTransaction(node *xmlquery.Node, identity types.FilerIdentity) (types.Transaction, bool) {
	coding := xmlquery.FindOne(node, ".//transactionCoding")
	if coding == nil {
		return types.Transaction{}, false
	}
	amounts := xmlquery.FindOne(node, ".//transactionAmounts")
	if amounts == nil {
		return types.Transaction{}, false
	}

	return types.Transaction{
		InsiderName:      identity.Name,
		InsiderTitle:     identity.Title,
		Code:             types.TransactionCode(firstText(coding, ".//transactionCode")),
		Date:             firstText(node, ".//transactionDate/value", ".//transactionDate/date"),
		Shares:           floatValue(amounts, ".//transactionShares/value"),
		PricePerShare:    floatValue(amounts, ".//transactionPricePerShare/value"),
		SharesOwnedAfter: floatValue(node, ".//postTransactionAmounts//sharesOwnedFollowingTransaction/value"),
	}, true
}

// extractXMLBlock returns the text between the literal <XML> markers, or ""
// when either marker is absent or out of order.
func extractXMLBlock(text string) string {
	start := strings.Index(text, xmlOpen)
	if start < 0 {
		return ""
	}
	rest := text[start+len(xmlOpen):]
	end := strings.Index(rest, xmlClose)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// firstText returns the trimmed inner text of the first path that matches,
// or "".
func firstText(node *xmlquery.Node, paths ...string) string {
	for _, path := range paths {
		if n := xmlquery.FindOne(node, path); n != nil {
			if text := strings.TrimSpace(n.InnerText()); text != "" {
				return text
			}
		}
	}
	return ""
}

// floatValue reads a decimal leaf, defaulting to 0 when the value is missing
// or empty.
func floatValue(node *xmlquery.Node, path string) float64 {
	text := firstText(node, path)
	if text == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
