package cli

import (
	"encoding/json"
	"fmt"

	"github.com/coalton-labs/memvault/internal/model"
	"github.com/coalton-labs/memvault/internal/search"
)

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func printRecord(rec *model.Record) {
	if formatFlag == "text" {
		fmt.Printf("%s  [%s]  %s:%d\n  %s\n", rec.Hash, rec.Category, rec.Source, rec.Line, rec.Content)
		return
	}
	printJSON(rec)
}

func printRecords(recs []*model.Record) {
	if formatFlag == "text" {
		for _, rec := range recs {
			printRecord(rec)
		}
		return
	}
	if recs == nil {
		recs = []*model.Record{}
	}
	printJSON(recs)
}

func printResults(results []search.Result) {
	if formatFlag == "text" {
		for _, r := range results {
			fmt.Printf("%.2f  %s  %s\n", r.Relevance, r.Record.Hash, r.Record.Content)
		}
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	printJSON(results)
}
