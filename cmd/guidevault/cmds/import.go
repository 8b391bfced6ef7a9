package cmds

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/voyagen/guidevault/internal/cache"
	"github.com/voyagen/guidevault/internal/reminder"
)

func NewImportCLI() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a playlist or guide into the store.",
	}
	importCmd.AddCommand(newImportKindCLI(cache.JobPlaylist, "Replace the channel roster with an M3U playlist."))
	importCmd.AddCommand(newImportKindCLI(cache.JobGuide, "Replace the guide with an XMLTV document (plain or gzip)."))
	return importCmd
}

func newImportKindCLI(kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <file|url>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePersistentStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, reminder.LogNotifier{}, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			var res any
			if src := args[0]; isRemote(src) {
				res, err = a.guide.ImportFromURL(ctx, kind, src)
			} else {
				var f *os.File
				if f, err = os.Open(src); err != nil {
					return err
				}
				defer f.Close()
				if kind == cache.JobPlaylist {
					res, err = a.guide.ImportPlaylist(ctx, f)
				} else {
					res, err = a.guide.ImportGuide(ctx, f)
				}
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
