package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"rmmdeploy/internal/strategy"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Scaffold a new component file from templates",
	RunE:  runScaffold,
}

var (
	scaffoldOS        string
	scaffoldCategory  string
	scaffoldName      string
	scaffoldOutputVar string
	scaffoldVersion   string
	scaffoldRoot      string
	scaffoldForce     bool
	scaffoldDryRun    bool
)

func init() {
	scaffoldCmd.Flags().StringVar(&scaffoldOS, "os", "", "target OS: windows, macos, linux")
	scaffoldCmd.Flags().StringVar(&scaffoldCategory, "category", "", "monitor, application, or script")
	scaffoldCmd.Flags().StringVar(&scaffoldName, "name", "", "component name (normalized to a kebab-case filename)")
	scaffoldCmd.Flags().StringVar(&scaffoldOutputVar, "output-var", "Status", "monitor output variable name")
	scaffoldCmd.Flags().StringVar(&scaffoldVersion, "version", "0.1.0", "component version placeholder")
	scaffoldCmd.Flags().StringVar(&scaffoldRoot, "repo-root", ".", "component repository root")
	scaffoldCmd.Flags().BoolVar(&scaffoldForce, "force", false, "overwrite an existing file")
	scaffoldCmd.Flags().BoolVar(&scaffoldDryRun, "dry-run", false, "print intended actions without writing")
	_ = scaffoldCmd.MarkFlagRequired("os")
	_ = scaffoldCmd.MarkFlagRequired("category")
	_ = scaffoldCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(scaffoldCmd)
}

var outputVarPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func runScaffold(_ *cobra.Command, _ []string) error {
	category, err := strategy.ParseCategory(scaffoldCategory)
	if err != nil {
		return err
	}
	osDir, err := scaffoldOSDir(scaffoldOS)
	if err != nil {
		return err
	}
	if category == strategy.Monitor && !outputVarPattern.MatchString(scaffoldOutputVar) {
		return fmt.Errorf("invalid --output-var %q: use only letters, digits, and underscore", scaffoldOutputVar)
	}

	filename, err := normalizeKebab(scaffoldName)
	if err != nil {
		return err
	}

	dest := destinationPath(scaffoldRoot, scaffoldOS, category, filename)
	tmplName := templateName(scaffoldOS, category)

	raw, err := templatesFS.ReadFile("templates/" + tmplName)
	if err != nil {
		return fmt.Errorf("template %s: %w", tmplName, err)
	}

	if _, err := os.Stat(dest); err == nil && !scaffoldForce {
		return fmt.Errorf("refusing to overwrite existing file: %s (use --force)", dest)
	}

	rendered := renderTemplate(string(raw), map[string]string{
		"NAME":       strings.TrimSpace(scaffoldName),
		"FILENAME":   filename,
		"CATEGORY":   category.Dir(),
		"OS":         osDir,
		"OUTPUT_VAR": scaffoldOutputVar,
		"VERSION":    scaffoldVersion,
	})

	fmt.Printf("Template: %s\n", tmplName)
	fmt.Printf("Target:   %s\n", dest)

	if scaffoldDryRun {
		fmt.Println("Dry run: not writing files.")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create component dir: %w", err)
	}
	perm := os.FileMode(0o644)
	if strings.HasSuffix(dest, ".sh") {
		perm = 0o755
	}
	if err := os.WriteFile(dest, []byte(rendered), perm); err != nil {
		return fmt.Errorf("write component: %w", err)
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("- Edit: %s\n", dest)
	fmt.Printf("- Run locally: rmmctl run --script %s\n", dest)
	if category == strategy.Monitor {
		fmt.Printf("- Validate output: rmmctl run --script %s --validate-monitor --output-var %s\n", dest, scaffoldOutputVar)
		fmt.Printf("- Set the RMM monitor output variable to: %s\n", scaffoldOutputVar)
	}
	return nil
}

func scaffoldOSDir(name string) (string, error) {
	switch strings.ToLower(name) {
	case "windows":
		return "Windows", nil
	case "macos":
		return "macOS", nil
	case "linux":
		return "Linux", nil
	default:
		return "", fmt.Errorf("unknown OS: %q", name)
	}
}

func templateName(osName string, category strategy.Category) string {
	shell := "bash"
	ext := "sh"
	if strings.EqualFold(osName, "windows") {
		shell = "powershell"
		ext = "ps1"
	}
	return fmt.Sprintf("%s-%s.%s.tmpl", shell, category, ext)
}

func destinationPath(root, osName string, category strategy.Category, filename string) string {
	base := filepath.Join(root, "components", category.Dir())
	switch strings.ToLower(osName) {
	case "windows":
		return filepath.Join(base, filename+".ps1")
	case "macos":
		return filepath.Join(base, "macOS", filename+".sh")
	default:
		return filepath.Join(base, "Linux", filename+".sh")
	}
}

var (
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)
	dashRunPattern  = regexp.MustCompile(`-{2,}`)
)

// normalizeKebab lowercases the name and collapses everything that is not
// a letter or digit into single dashes.
func normalizeKebab(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = nonAlnumPattern.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	value = dashRunPattern.ReplaceAllString(value, "-")
	if value == "" {
		return "", fmt.Errorf("invalid name %q: produced an empty filename after normalization", raw)
	}
	return value, nil
}

func renderTemplate(text string, subs map[string]string) string {
	for key, value := range subs {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
