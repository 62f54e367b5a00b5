package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// PrintQuery runs a read query and prints the rows tab separated, with a
// header line when there is more than one column.
func PrintQuery(ctx context.Context, w io.Writer, db *sql.Tx, query string, args ...interface{}) error {
	result, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer result.Close()
	columns, err := result.Columns()
	if err != nil {
		return err
	}
	if len(columns) > 1 {
		fmt.Fprintln(w, strings.Join(columns, "\t"))
	}
	pointers := make([]interface{}, len(columns))
	container := make([]sql.NullString, len(columns))
	for i := range columns {
		pointers[i] = &container[i]
	}
	line := make([]string, len(columns))
	for result.Next() {
		if err := result.Scan(pointers...); err != nil {
			return err
		}
		for i, v := range container {
			line[i] = v.String
		}
		fmt.Fprintln(w, strings.Join(line, "\t"))
	}
	return result.Err()
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [SUFFIX]",
	Short: "Query the evaluations of a project",
	Long: `Query the evaluation catalogue of a project.

Examples:
  # Count images per suggested suffix
  imgreader query

  # List images evaluated with the suffix _AHU-3
  imgreader query _AHU-3

  # List failed evaluations with their reason
  imgreader query --failed

  # List images whose content is identical
  imgreader query --duplicates`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed, _ := cmd.Flags().GetBool("failed")
		duplicates, _ := cmd.Flags().GetBool("duplicates")
		return run(cmd, func(ctx context.Context, a *app) error {
			name, err := a.projectName(ctx)
			if err != nil {
				return err
			}
			p, err := a.backend.GetProject(ctx, name)
			if err != nil {
				return err
			}

			tx, err := a.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer tx.Rollback()

			switch {
			case failed:
				return PrintQuery(ctx, a.out, tx,
					"SELECT image_name, fail_reason FROM evaluations WHERE project_id = ? AND fail_reason IS NOT NULL ORDER BY image_name", p.ID)
			case duplicates:
				return PrintQuery(ctx, a.out, tx, `
SELECT sha256, group_concat(name, ' ') AS images FROM (
    SELECT sha256, name FROM images WHERE project_id = ? ORDER BY name
) GROUP BY sha256 HAVING count(*) > 1 ORDER BY images`, p.ID)
			case len(args) == 1:
				return PrintQuery(ctx, a.out, tx,
					"SELECT image_name FROM evaluations WHERE project_id = ? AND suggested_suffix = ? ORDER BY image_name", p.ID, args[0])
			default:
				return PrintQuery(ctx, a.out, tx, `
SELECT coalesce(suggested_suffix, '') AS suffix, count(*) AS images FROM evaluations
WHERE project_id = ? AND fail_reason IS NULL
GROUP BY suggested_suffix ORDER BY suggested_suffix`, p.ID)
			}
		})
	},
}

func init() {
	queryCmd.Flags().Bool("failed", false, "list failed evaluations")
	queryCmd.Flags().Bool("duplicates", false, "list images sharing the same content")
	rootCmd.AddCommand(queryCmd)
}
