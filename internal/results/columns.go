// Package results turns raw peptide tables returned by the prediction
// service into normalized rows and per-allele series ready for charting.
package results

import "strings"

// Role identifies the semantic meaning of a peptide-table column.
type Role int

const (
	RoleAllele Role = iota
	RoleStart
	RoleEnd
	RoleLength
	RoleCorePeptide
	RolePeptide
	RoleAffinity
	RoleScore
	RolePercentileRank
	RoleSequenceText
	RoleMethod
	RoleSeqNum
	roleCount
)

// roleAliases maps each role to its accepted header spellings, in preference
// order. The remote schema is not contractually stable, so identity is
// resolved by alias matching rather than position.
var roleAliases = [roleCount][]string{
	RoleAllele:         {"allele"},
	RoleStart:          {"start"},
	RoleEnd:            {"end"},
	RoleLength:         {"length", "peptide_length"},
	RoleCorePeptide:    {"core_peptide", "core"},
	RolePeptide:        {"peptide"},
	RoleAffinity:       {"ic50", "kd", "affinity"},
	RoleScore:          {"score"},
	RolePercentileRank: {"percentile", "percentile_rank", "rank"},
	RoleSequenceText:   {"sequence_text", "input_sequence", "input"},
	RoleMethod:         {"method", "predictor", "tool"},
	RoleSeqNum:         {"seq_num", "sequence_index", "sequence_no"},
}

// ColumnIndex maps roles to column positions; -1 means unresolved.
type ColumnIndex [roleCount]int

// header is the case-normalized identity of a column: the name when present,
// else the display name.
type header struct {
	norm string
}

// ResolveColumns matches each role against the table headers. An exact
// (case-insensitive) match wins over substring containment; earlier aliases
// win over later ones.
func ResolveColumns(names []string) ColumnIndex {
	norm := make([]header, len(names))
	for i, n := range names {
		norm[i] = header{norm: strings.ToLower(strings.TrimSpace(n))}
	}

	var idx ColumnIndex
	for role := Role(0); role < roleCount; role++ {
		idx[role] = pickColumn(norm, roleAliases[role])
	}
	return idx
}

func pickColumn(headers []header, aliases []string) int {
	for _, a := range aliases {
		a = strings.ToLower(a)
		for i, h := range headers {
			if h.norm == a {
				return i
			}
		}
	}
	for i, h := range headers {
		for _, a := range aliases {
			if strings.Contains(h.norm, strings.ToLower(a)) {
				return i
			}
		}
	}
	return -1
}
