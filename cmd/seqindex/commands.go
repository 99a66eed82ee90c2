package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
	storageengine "SeqIndex/storage_engine"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <flatfile>...",
		Short: "Index the records of one or more flat files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(false, func(se *storageengine.StorageEngine) error {
				for _, path := range args {
					start := time.Now()
					st, err := se.Build(cmd.Context(), path)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: dbno %d, %s records (%s skipped), %s keyword links, %s in %s\n",
						path, st.DBNo, humanize.Comma(st.Records), humanize.Comma(st.Skipped),
						humanize.Comma(st.Keywords), humanize.IBytes(uint64(st.Bytes)),
						time.Since(start).Round(time.Millisecond))
				}
				return nil
			})
		},
	}
}

func (a *app) lookupCmd() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "lookup <id>",
		Short: "Show every occurrence of an id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(true, func(se *storageengine.StorageEngine) error {
				recs, err := se.Lookup(args[0])
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					return fmt.Errorf("%s: not found", args[0])
				}
				return printRecords(cmd.OutOrStdout(), se, recs, show)
			})
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the records themselves")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "List the occurrences of every id matching a '*'/'?' pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(true, func(se *storageengine.StorageEngine) error {
				recs, err := se.Search(args[0])
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), se, recs, show)
			})
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the records themselves")
	return cmd
}

func (a *app) keywordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keyword <word|pattern>",
		Short: "List the ids whose description holds a matching word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(true, func(se *storageengine.StorageEngine) error {
				ids, err := se.Keyword(args[0])
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Remove ids and their keywords from the indexes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(false, func(se *storageengine.StorageEngine) error {
				for _, id := range args {
					removed, err := se.Delete(id)
					if err != nil {
						return err
					}
					if !removed {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show flat files and index sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(true, func(se *storageengine.StorageEngine) error {
				// the indexes are opened lazily; touch them so they are listed
				if _, err := se.Lookup(""); err != nil {
					return err
				}
				if _, err := se.Keyword(""); err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), se.Stats())
				return nil
			})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the structure of every tree of both indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(true, func(se *storageengine.StorageEngine) error {
				reports, err := se.Check()
				names := make([]string, 0, len(reports))
				for name := range reports {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					r := reports[name]
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %s trees, %s nodes, %s entries\n", name,
						humanize.Comma(int64(r.Trees)), humanize.Comma(int64(r.Nodes)), humanize.Comma(r.Entries))
				}
				return err
			})
		},
	}
}

func printRecords(w io.Writer, se *storageengine.StorageEngine, recs []indexfile.IDRecord, show bool) error {
	for _, r := range recs {
		if !show {
			fmt.Fprintf(w, "%s\tdbno=%d\toffset=%d\n", r.ID, r.DBNo, r.Offset)
			continue
		}
		text, err := se.Fetch(r)
		if err != nil {
			return err
		}
		fmt.Fprint(w, text)
	}
	return nil
}

func printStats(w io.Writer, st storageengine.EngineStats) {
	fmt.Fprintf(w, "Database %s\n", st.Root)
	for _, s := range st.Sources {
		fmt.Fprintf(w, "  dbno %d  %s  %s  %s records\n", s.DBNo, s.Path,
			humanize.IBytes(uint64(s.Size)), humanize.Comma(s.Records))
	}
	for _, x := range st.Indexes {
		fmt.Fprintf(w, "  index %-4s %-8s %s entries, level %d, %s, cache hit rate %.1f%%",
			x.Name, x.Kind, humanize.Comma(x.Count), x.Level, humanize.IBytes(uint64(x.FileSize)), x.Pool.HitRate*100)
		if x.Torn {
			fmt.Fprint(w, " TORN")
		}
		fmt.Fprintln(w)
	}
}
