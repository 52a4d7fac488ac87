package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gradlist/internal"
	"gradlist/internal/config"
	"gradlist/internal/ingest"
	"gradlist/internal/mailer"
	"gradlist/internal/storage"
	"gradlist/internal/verify"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "ingest:file":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		degree := fs.String("degree", "", "degree track")
		file := fs.String("file", "", "pdf/image/xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		blob, err := os.ReadFile(*file)
		must(err)
		svc := ingest.NewService(db, cfg)
		res, err := svc.IngestFile(context.Background(), *school, *department, *degree, filepath.Base(*file), blob)
		reportIngest(res, err)
	case "ingest:url":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		degree := fs.String("degree", "", "degree track")
		url := fs.String("url", "", "announcement page url")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*url) == "" {
			must(fmt.Errorf("--url is required"))
		}
		svc := ingest.NewService(db, cfg)
		res, err := svc.IngestURL(context.Background(), *school, *department, *degree, *url)
		reportIngest(res, err)
	case "ingest:names":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		degree := fs.String("degree", "", "degree track")
		names := fs.String("names", "", "comma separated names")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*names) == "" {
			must(fmt.Errorf("--names is required"))
		}
		svc := ingest.NewService(db, cfg)
		res, err := svc.IngestNames(*school, *department, *degree, strings.Split(*names, ","))
		reportIngest(res, err)
	case "validate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		degree := fs.String("degree", "", "degree track")
		name := fs.String("name", "", "applicant name")
		_ = fs.Parse(os.Args[2:])
		svc := ingest.NewService(db, cfg)
		v, err := svc.Validate(*school, *department, *degree, *name)
		must(err)
		if v.MatchedToken != "" {
			fmt.Printf("%s (matched %s)\n", v.Outcome, v.MatchedToken)
			return
		}
		fmt.Println(v.Outcome)
	case "namelist:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		_ = fs.Parse(os.Args[2:])
		svc := ingest.NewService(db, cfg)
		has, stored, err := svc.CheckNamelist(*school, *department)
		must(err)
		if !has {
			fmt.Println("no namelist stored")
			return
		}
		fmt.Println(stored)
	case "namelist:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		output := *out
		if strings.TrimSpace(output) == "" {
			output = filepath.Join(cfg.OutputDir, fmt.Sprintf("%s-%s.xlsx", *school, *department))
		}
		svc := ingest.NewService(db, cfg)
		count, err := svc.ExportNamelist(*school, *department, output)
		must(err)
		fmt.Printf("exported %d tracks to %s\n", count, output)
	case "catalog:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		degrees := fs.String("degrees", "", "comma separated degree tracks")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*school) == "" || strings.TrimSpace(*department) == "" {
			must(fmt.Errorf("--school and --department are required"))
		}
		var d *string
		if strings.TrimSpace(*degrees) != "" {
			d = degrees
		}
		must(db.UpsertDepartment(*school, *department, d))
		fmt.Printf("catalog updated: %s %s\n", *school, *department)
	case "catalog:schools":
		schools, err := db.ListSchools()
		must(err)
		for _, s := range schools {
			fmt.Println(s)
		}
	case "catalog:departments":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		_ = fs.Parse(os.Args[2:])
		deps, err := db.ListDepartments(*school)
		must(err)
		for _, dep := range deps {
			fmt.Println(dep)
		}
	case "catalog:degrees":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		_ = fs.Parse(os.Args[2:])
		var degrees []string
		var err error
		if strings.TrimSpace(*school) == "" && strings.TrimSpace(*department) == "" {
			degrees, err = db.ListAllDegrees()
		} else {
			degrees, err = db.ListDegrees(*school, *department)
		}
		must(err)
		for _, degree := range degrees {
			fmt.Println(degree)
		}
	case "choices:set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		user := fs.Int("user", 0, "user id")
		list := fs.String("choices", "", "school/department/degree;... in rank order")
		_ = fs.Parse(os.Args[2:])
		if *user == 0 {
			must(fmt.Errorf("--user is required"))
		}
		choices, err := parseChoices(*list)
		must(err)
		must(db.ReplaceUserChoices(*user, choices))
		fmt.Printf("stored %d choices for user %d\n", len(choices), *user)
	case "choices:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		user := fs.Int("user", 0, "user id")
		_ = fs.Parse(os.Args[2:])
		choices, err := db.ListUserChoices(*user)
		must(err)
		for _, c := range choices {
			fmt.Printf("%d. %s %s %s\n", c.Rank, c.School, c.Department, c.Degree)
		}
	case "stats":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		user := fs.Int("user", 0, "user id")
		school := fs.String("school", "", "school name")
		department := fs.String("department", "", "department name")
		degree := fs.String("degree", "", "degree track")
		_ = fs.Parse(os.Args[2:])
		svc := ingest.NewService(db, cfg)
		stats, err := svc.Stats(*user, *school, *department, *degree)
		must(err)
		rank := "-"
		if stats.UserRank != nil {
			rank = fmt.Sprintf("%d", *stats.UserRank)
		}
		fmt.Printf("namelist=%d choices=%d first=%d fifth+=%d yourRank=%s\n",
			stats.NamelistCount, stats.TotalChoices, stats.FirstChoice, stats.FifthAndAfter, rank)
	case "verify:send":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "recipient address")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*email) == "" {
			must(fmt.Errorf("--email is required"))
		}
		m, err := mailer.New(cfg)
		must(err)
		svc := verify.NewService(db, cfg, m)
		must(svc.Apply(*email))
		fmt.Printf("verification code sent to %s\n", *email)
	case "verify:check":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "recipient address")
		code := fs.String("code", "", "verification code")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*email) == "" || strings.TrimSpace(*code) == "" {
			must(fmt.Errorf("--email and --code are required"))
		}
		svc := verify.NewService(db, cfg, nil)
		must(svc.Check(*email, *code))
		fmt.Printf("%s verified\n", *email)
	default:
		usage()
		os.Exit(1)
	}
}

func reportIngest(res ingest.Result, err error) {
	var rejected *ingest.RejectedError
	if errors.As(err, &rejected) {
		fmt.Printf("rejected: %s\n", rejected.Reason)
		os.Exit(1)
	}
	must(err)
	fmt.Printf("stored %d names for %s (hasNames=%v)\n", res.Count, res.Degree, res.HasNames)
}

func parseChoices(list string) ([]internal.UserChoice, error) {
	var out []internal.UserChoice
	for _, part := range strings.Split(list, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, "/")
		if len(fields) != 3 {
			return nil, fmt.Errorf("bad choice %q, want school/department/degree", part)
		}
		out = append(out, internal.UserChoice{
			School:     strings.TrimSpace(fields[0]),
			Department: strings.TrimSpace(fields[1]),
			Degree:     strings.TrimSpace(fields[2]),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("--choices is required")
	}
	return out, nil
}

func usage() {
	fmt.Println("usage: gradlist <command>")
	fmt.Println("commands:")
	fmt.Println("  ingest:file --school=... --department=... --degree=... --file=doc.pdf")
	fmt.Println("  ingest:url --school=... --department=... --degree=... --url=https://...")
	fmt.Println("  ingest:names --school=... --department=... --degree=... --names=a,b,c")
	fmt.Println("  validate --school=... --department=... --degree=... --name=...")
	fmt.Println("  namelist:show --school=... --department=...")
	fmt.Println("  namelist:export --school=... --department=... [--out=./out/result.xlsx]")
	fmt.Println("  catalog:add --school=... --department=... [--degrees=a,b]")
	fmt.Println("  catalog:schools")
	fmt.Println("  catalog:departments --school=...")
	fmt.Println("  catalog:degrees [--school=... --department=...]")
	fmt.Println("  choices:set --user=1 --choices='school/dep/degree;school/dep/degree'")
	fmt.Println("  choices:list --user=1")
	fmt.Println("  stats --user=1 --school=... --department=... --degree=...")
	fmt.Println("  verify:send --email=...")
	fmt.Println("  verify:check --email=... --code=123456")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
