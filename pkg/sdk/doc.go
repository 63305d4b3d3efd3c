// Package opsearch embeds the operator search engine in a Go program.
//
// Records come from a CSV export, a Redis hash namespace or an in-memory
// slice. Every search scores all records with token-set similarity and
// returns those at or above the relevance threshold, best first.
//
//	eng, _ := opsearch.New(ctx, opsearch.WithCSV("Relatorio_cadop.csv"))
//	defer eng.Close()
//
//	res, _ := eng.Search(ctx, "unimed bh", opsearch.Limit(5), opsearch.MinRelevance(0.7))
//	for _, m := range res.Matches {
//	    fmt.Println(m.Relevance, m.Fields["razao_social"])
//	}
package opsearch
