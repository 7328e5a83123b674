package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aryan0dhankhar/hirebridge/internal/domain"
	"github.com/aryan0dhankhar/hirebridge/internal/security/auth"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "token":
		err = handleToken(args)
	case "intro":
		err = handleIntroductions(args)
	case "identity":
		err = handleIdentity(args)
	case "subscription":
		err = handleSubscription(args)
	case "admin":
		err = handleAdmin(args)
	case "reference":
		err = handleReference(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func handleToken(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: hirebridgectl token <mint|use|clear>")
		return nil
	}

	switch args[0] {
	case "mint":
		return mintToken(args[1:])
	case "use":
		if len(args) < 2 {
			return fmt.Errorf("usage: hirebridgectl token use <token>")
		}
		if err := saveToken(args[1]); err != nil {
			return err
		}
		fmt.Println("✓ Token saved")
		return nil
	case "clear":
		os.Remove(tokenFile())
		fmt.Println("✓ Token cleared")
		return nil
	default:
		return fmt.Errorf("unknown token command: %s", args[0])
	}
}

func handleIntroductions(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: hirebridgectl intro <create|list|get|accept|decline|withdraw>")
		return nil
	}

	switch args[0] {
	case "create":
		return createIntroduction(args[1:])
	case "list":
		return listIntroductions(args[1:])
	case "get":
		id, err := requireArg(args[1:], "intro get <request-id>")
		if err != nil {
			return err
		}
		return showIntroduction(http.MethodGet, "/v1/introductions/"+url.PathEscape(id))
	case "accept", "decline", "withdraw":
		id, err := requireArg(args[1:], "intro "+args[0]+" <request-id>")
		if err != nil {
			return err
		}
		return showIntroduction(http.MethodPost, "/v1/introductions/"+url.PathEscape(id)+"/"+args[0])
	default:
		return fmt.Errorf("unknown intro command: %s", args[0])
	}
}

func handleIdentity(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: hirebridgectl identity <who|switch>")
		return nil
	}

	switch args[0] {
	case "who":
		return whoAmI()
	case "switch":
		role, err := requireArg(args[1:], "identity switch <professional|hr_partner>")
		if err != nil {
			return err
		}
		var out map[string]any
		if err := call(http.MethodPost, "/v1/identity/active-role", map[string]string{"role": role}, &out); err != nil {
			return err
		}
		fmt.Printf("✓ Active role: %v\n", out["effectiveRole"])
		return nil
	default:
		return fmt.Errorf("unknown identity command: %s", args[0])
	}
}

func handleSubscription(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: hirebridgectl subscription <status|feature>")
		return nil
	}

	switch args[0] {
	case "status":
		var out map[string]any
		if err := call(http.MethodGet, "/v1/subscription/status", nil, &out); err != nil {
			return err
		}
		return printKeyValues(out)
	case "feature":
		feature, err := requireArg(args[1:], "subscription feature <feature>")
		if err != nil {
			return err
		}
		var out map[string]any
		if err := call(http.MethodGet, "/v1/subscription/features/"+url.PathEscape(feature), nil, &out); err != nil {
			return err
		}
		return printKeyValues(out)
	default:
		return fmt.Errorf("unknown subscription command: %s", args[0])
	}
}

func handleAdmin(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: hirebridgectl admin <credits|sweep>")
		return nil
	}

	switch args[0] {
	case "credits":
		return grantCredits(args[1:])
	case "sweep":
		var out struct {
			Expired int `json:"expired"`
		}
		if err := call(http.MethodPost, "/v1/admin/sweeps", nil, &out); err != nil {
			return err
		}
		fmt.Printf("✓ Sweep expired %d request(s)\n", out.Expired)
		return nil
	default:
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func handleReference(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: hirebridgectl reference <regions|cities>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch args[0] {
	case "regions":
		var regions []domain.Region
		if err := call(http.MethodGet, "/v1/reference/regions", nil, &regions); err != nil {
			return err
		}
		fmt.Fprintln(w, "CODE\tNAME")
		for _, r := range regions {
			fmt.Fprintf(w, "%s\t%s\n", r.Code, r.Name)
		}
		return nil
	case "cities":
		code, err := requireArg(args[1:], "reference cities <region-code>")
		if err != nil {
			return err
		}
		var cities []domain.City
		if err := call(http.MethodGet, "/v1/reference/regions/"+url.PathEscape(code)+"/cities", nil, &cities); err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tNAME")
		for _, c := range cities {
			fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown reference command: %s", args[0])
	}
}

// Token commands
func mintToken(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	subject := fs.String("subject", "", "principal ID")
	role := fs.String("role", "", "primary role (professional, hr_partner, admin)")
	dual := fs.Bool("dual", false, "principal holds both professional and hr_partner")
	active := fs.String("active", "", "active role for dual-role principals")
	company := fs.String("company", "", "company ID for HR partners")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	save := fs.Bool("save", true, "store the token for later commands")

	fs.Parse(args)

	if *subject == "" || *role == "" {
		fs.PrintDefaults()
		return fmt.Errorf("subject and role are required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET must be set to mint tokens")
	}
	tokens := auth.NewTokenManager(secret, os.Getenv("JWT_ISSUER"))
	token, err := tokens.GenerateToken(domain.Claims{
		Subject:     *subject,
		Role:        *role,
		HasDualRole: *dual,
		ActiveRole:  *active,
		CompanyID:   *company,
	}, *ttl)
	if err != nil {
		return err
	}

	if *save {
		if err := saveToken(token); err != nil {
			return err
		}
		fmt.Printf("✓ Token saved for %s\n", *subject)
		return nil
	}
	fmt.Println(token)
	return nil
}

// Introduction commands
func createIntroduction(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	professional := fs.String("professional", "", "professional ID")
	jobRole := fs.String("job-role", "", "job role ID (optional)")

	fs.Parse(args)

	if *professional == "" {
		fs.PrintDefaults()
		return fmt.Errorf("professional is required")
	}

	payload := map[string]string{"professionalId": *professional}
	if *jobRole != "" {
		payload["jobRoleId"] = *jobRole
	}
	var out map[string]any
	if err := call(http.MethodPost, "/v1/introductions", payload, &out); err != nil {
		return err
	}
	fmt.Printf("✓ Introduction requested: %v (expires %v)\n", out["id"], out["expiresAt"])
	return nil
}

func listIntroductions(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	box := fs.String("box", "", "sent or received (default follows the active role)")
	state := fs.String("state", "", "filter by state")
	limit := fs.Int("limit", 0, "maximum results")

	fs.Parse(args)

	query := url.Values{}
	if *box != "" {
		query.Set("box", *box)
	}
	if *state != "" {
		query.Set("state", *state)
	}
	if *limit > 0 {
		query.Set("limit", fmt.Sprint(*limit))
	}
	path := "/v1/introductions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var intros []map[string]any
	if err := call(http.MethodGet, path, nil, &intros); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tPROFESSIONAL\tSTATE\tEXPIRES")
	for _, in := range intros {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", in["id"], in["companyId"], in["professionalId"], in["state"], in["expiresAt"])
	}
	return w.Flush()
}

func showIntroduction(method, path string) error {
	var out map[string]any
	if err := call(method, path, nil, &out); err != nil {
		return err
	}
	return printKeyValues(out)
}

// Identity commands
func whoAmI() error {
	if loadToken() == "" {
		fmt.Println("Not logged in")
		return nil
	}
	var out map[string]any
	if err := call(http.MethodGet, "/v1/identity", nil, &out); err != nil {
		return err
	}
	return printKeyValues(out)
}

// Admin commands
func grantCredits(args []string) error {
	fs := flag.NewFlagSet("credits", flag.ExitOnError)
	company := fs.String("company", "", "company ID")
	delta := fs.Int("delta", 0, "credits to add (negative to remove)")
	expected := fs.Int("expect", -1, "expected current balance; -1 skips the check")

	fs.Parse(args)

	if *company == "" || *delta == 0 {
		fs.PrintDefaults()
		return fmt.Errorf("company and a non-zero delta are required")
	}

	payload := map[string]any{"delta": *delta}
	if *expected >= 0 {
		payload["expectedPrior"] = *expected
	}
	var out struct {
		CompanyID string `json:"companyId"`
		Balance   int    `json:"balance"`
	}
	if err := call(http.MethodPost, "/v1/admin/companies/"+url.PathEscape(*company)+"/credits", payload, &out); err != nil {
		return err
	}
	fmt.Printf("✓ %s now holds %d credit(s)\n", out.CompanyID, out.Balance)
	return nil
}

// Helper functions
func call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, getAPIURL()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("request failed: %s", resp.Status)
		}
		return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Code)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printKeyValues(values map[string]any) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for k, v := range values {
		fmt.Fprintf(w, "%s\t%v\n", k, v)
	}
	return w.Flush()
}

func requireArg(args []string, usage string) (string, error) {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("usage: hirebridgectl %s", usage)
	}
	return args[0], nil
}

func getAPIURL() string {
	if u := os.Getenv("HIREBRIDGE_API"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hirebridge", "token")
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenFile()), 0700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return strings.TrimSpace(string(data))
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`HireBridge CLI

Usage:
  hirebridgectl <command> [options]

Commands:
  token         Development tokens (mint, use, clear)
  intro         Introduction requests (create, list, get, accept, decline, withdraw)
  identity      Current identity (who, switch)
  subscription  Company entitlements (status, feature)
  admin         Admin operations (credits, sweep) - admin access required
  reference     Onboarding reference data (regions, cities)
  help          Show this help message

Environment Variables:
  HIREBRIDGE_API    API endpoint (default: http://localhost:8080)
  JWT_SECRET        Signing secret used by "token mint"

Examples:
  hirebridgectl token mint -subject hr-1 -role hr_partner -company demo-company
  hirebridgectl intro create -professional demo-pro-1
  hirebridgectl intro list -box sent -state pending
  hirebridgectl identity switch hr_partner
`)
}
