package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zarlcorp/zroster/internal/store"
	"github.com/zarlcorp/zroster/internal/student"
)

func newListCmd(env *Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := env.OpenRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			students, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if students == nil {
					students = []student.Student{}
				}
				return printJSON(out, students)
			}
			if len(students) == 0 {
				fmt.Fprintln(out, "no students")
				return nil
			}
			for _, s := range students {
				fmt.Fprintf(out, "  %-6d %-24s %-30s %s\n", s.ID, s.Name, s.Address, s.Phone)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newShowCmd(env *Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			repo, err := env.OpenRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			s, err := repo.Get(cmd.Context(), id)
			if err != nil {
				return notFound(id, err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), s)
			}
			printStudent(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAddCmd(env *Env) *cobra.Command {
	var s student.Student

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := env.OpenRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			saved, err := repo.Insert(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d\n", saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&s.Name, "name", "", "student name")
	cmd.Flags().StringVar(&s.Address, "address", "", "student address")
	cmd.Flags().StringVar(&s.Phone, "phone", "", "student phone number")
	return cmd
}

func newEditCmd(env *Env) *cobra.Command {
	var name, address, phone string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a student's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			repo, err := env.OpenRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			s, err := repo.Get(cmd.Context(), id)
			if err != nil {
				return notFound(id, err)
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				s.Name = name
			}
			if flags.Changed("address") {
				s.Address = address
			}
			if flags.Changed("phone") {
				s.Phone = phone
			}

			if err := repo.Update(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "student name")
	cmd.Flags().StringVar(&address, "address", "", "student address")
	cmd.Flags().StringVar(&phone, "phone", "", "student phone number")
	return cmd
}

func newDeleteCmd(env *Env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			repo, err := env.OpenRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			s, err := repo.Get(cmd.Context(), id)
			if err != nil {
				return notFound(id, err)
			}

			out := cmd.OutOrStdout()
			if !yes {
				ok, err := confirmDelete(cmd.InOrStdin(), out, s)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "cancelled")
					return nil
				}
			}

			if err := repo.Delete(cmd.Context(), s); err != nil {
				return err
			}
			env.Log.Info().Int64("student", id).Msg("deleted from cli")
			fmt.Fprintf(out, "deleted %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newInitConfigCmd(env *Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the effective configuration to the config file",
		Long: "init-config saves the settings zroster is running with, after the config file,\n" +
			"environment and flags are applied, to the --config path.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := env.ConfigPath
			_, err := os.Stat(path)
			switch {
			case err == nil && !force:
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("stat config: %w", err)
			}

			if err := env.Config.Save(path); err != nil {
				return err
			}
			env.Log.Info().Str("path", path).Msg("config written")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// no config or store needed
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zroster %s\n", version)
		},
	}
}

// confirmDelete asks until it gets an explicit yes or no. Anything else,
// including an empty line, asks again.
func confirmDelete(in io.Reader, out io.Writer, s student.Student) (bool, error) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "delete %q (%d)? this cannot be undone. [y/n] ", s.Name, s.ID)
		if !sc.Scan() {
			fmt.Fprintln(out)
			if err := sc.Err(); err != nil {
				return false, fmt.Errorf("read answer: %w", err)
			}
			return false, errors.New("no answer: delete not confirmed")
		}

		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid student id %q", arg)
	}
	return id, nil
}

func notFound(id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("student %d not found", id)
	}
	return err
}

func printStudent(w io.Writer, s student.Student) {
	fmt.Fprintf(w, "  id:       %d\n", s.ID)
	fmt.Fprintf(w, "  name:     %s\n", s.Name)
	fmt.Fprintf(w, "  address:  %s\n", s.Address)
	fmt.Fprintf(w, "  phone:    %s\n", s.Phone)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
