package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/takutakahashi/storefront/pkg/utils"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(format string) (string, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q: use table, json or yaml", format)
	}
}

// render writes data as json or yaml, or calls table for the table format
func render(w io.Writer, format string, data interface{}, table func(tw *tabwriter.Writer)) error {
	switch format {
	case formatJSON:
		out, err := utils.MarshalJSONIndentString(data, "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	case formatYAML:
		out, err := utils.MarshalYAMLString(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}
