package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldenpython/payrollsystem/api"
)

const seedJSON = `{
  "departments": [{"id": "eng", "name": "Engineering"}],
  "employees": [{
    "id": "e1", "username": "eve", "full_name": "Eve Adams",
    "position": "Engineer", "department_id": "eng",
    "salary": "5000", "joined_on": "2024-01-08"
  }],
  "tax_rates": [{"id": "t1", "name": "Income Tax", "percentage": "0.10", "active": true}]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedRunAndList(t *testing.T) {
	// GIVEN: A fresh database file and a seed document
	dir := t.TempDir()
	db := filepath.Join(dir, "payroll.db")
	seedFile := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(seedJSON), 0o600))

	// WHEN: Seeding, running March, and listing payslips
	out, err := execute(t, "--db", db, "seed", "--file", seedFile)
	require.NoError(t, err, out)
	var seeded seedOutput
	require.NoError(t, json.Unmarshal([]byte(out), &seeded))
	assert.Equal(t, 1, seeded.Employees)

	out, err = execute(t, "--db", db, "run", "--month", "2025-03")
	require.NoError(t, err, out)
	var run runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, 1, run.Result.Succeeded)

	out, err = execute(t, "--db", db, "payslips", "--employee", "e1")
	require.NoError(t, err, out)

	// THEN: One payslip with 10% tax withheld
	var slips []api.PayrollRecordDTO
	require.NoError(t, json.Unmarshal([]byte(out), &slips))
	require.Len(t, slips, 1)
	assert.True(t, decimal.NewFromInt(4500).Equal(slips[0].NetPay))

	out, err = execute(t, "--db", db, "report", "department", "--id", "eng", "--from", "2025-03-01", "--to", "2025-03-31")
	require.NoError(t, err, out)
	var rep api.DepartmentReportDTO
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 1, rep.EmployeesProcessed)
}

func TestRequiredFlags(t *testing.T) {
	db := filepath.Join(t.TempDir(), "payroll.db")

	_, err := execute(t, "--db", db, "payslips")
	assert.Error(t, err)

	_, err = execute(t, "--db", db, "run", "--month", "March")
	assert.Error(t, err)
}
