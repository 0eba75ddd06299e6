package domain

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ResolveMaskAliases extends masks so they follow simple column aliases in
// sql: with `SELECT "Email" AS contact`, a mask on Email also applies to
// contact. Expressions are not followed. The input map is not modified; on
// a parse error it is returned as is.
func ResolveMaskAliases(sql string, masks map[string]MaskType) map[string]MaskType {
	if len(masks) == 0 {
		return masks
	}
	tree, err := pg_query.Parse(sql)
	if err != nil || len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return masks
	}
	sel := tree.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil {
		return masks
	}

	out := make(map[string]MaskType, len(masks))
	for k, v := range masks {
		out[k] = v
	}
	for _, target := range sel.TargetList {
		rt := target.GetResTarget()
		if rt == nil || rt.Name == "" || rt.Val == nil {
			continue
		}
		source := columnRefName(rt.Val.GetColumnRef())
		if source == "" || source == rt.Name {
			continue
		}
		if m, ok := masks[source]; ok {
			if _, taken := out[rt.Name]; !taken {
				out[rt.Name] = m
			}
		}
	}
	return out
}

// columnRefName returns the bare column of a reference such as "Email" or
// c."Email", or "" for anything else (stars included).
func columnRefName(cr *pg_query.ColumnRef) string {
	if cr == nil || len(cr.Fields) == 0 {
		return ""
	}
	return cr.Fields[len(cr.Fields)-1].GetString_().GetSval()
}
