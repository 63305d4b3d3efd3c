package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureCSV = `Registro_ANS;CNPJ;Razao_Social;Nome_Fantasia;UF
335339;02933479000190;BRADESCO SAUDE S.A.;BRADESCO SAUDE;RJ
326305;29309127000179;AMIL ASSISTENCIA MEDICA INTERNACIONAL S.A.;AMIL;SP
367095;16513178000176;UNIMED BELO HORIZONTE;UNIMED BH;MG
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "operadoras.csv")
	if err := os.WriteFile(csvPath, []byte(fixtureCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := "dataset:\n  path: " + csvPath + "\n  encoding: utf-8\n"
	cfgPath := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCmd_Table(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "search", "bradesco", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}
	if !strings.Contains(out, "BRADESCO SAUDE S.A.") || !strings.Contains(out, "1.000") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "AMIL") {
		t.Errorf("unrelated operator listed:\n%s", out)
	}
}

func TestSearchCmd_JSON(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "search", "unimed", "bh", "--json", "--limit", "1", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}

	var resp struct {
		Results []map[string]any `json:"results"`
		Meta    struct {
			Total int    `json:"total"`
			Term  string `json:"term"`
			Limit int    `json:"limit"`
		} `json:"meta"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if resp.Meta.Term != "unimed bh" || resp.Meta.Limit != 1 || resp.Meta.Total != 1 {
		t.Errorf("meta = %+v", resp.Meta)
	}
	if resp.Results[0]["registro_ans"] != "367095" {
		t.Errorf("result = %v", resp.Results[0])
	}
}

func TestSearchCmd_NoMatches(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "search", "hapvida", "-r", "0.9", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "No matches") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSearchCmd_InvalidRelevance(t *testing.T) {
	cfg := writeFixture(t)

	if _, err := run(t, "search", "amil", "-r", "2", "--config", cfg, "--env", "local"); err == nil {
		t.Fatal("expected error for min-relevance above 1")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "opsearch ") {
		t.Errorf("version output = %q", out)
	}
}
