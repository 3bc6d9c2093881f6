// Package test holds shared test suites for table backends.
package test

import (
	"context"
	"sync"
	"testing"

	"github.com/ruled/ruled/pkg/table"
)

// TableFactory returns a new table holding entries for the test suite.
type TableFactory func(t *testing.T, entries []string) (tbl table.Table, destroy func(), err error)

// suiteEntries is loaded into every table under test.
var suiteEntries = []string{
	"local",
	"192.0.2.0/24",
	"198.51.100.7",
	"2001:db8::/32",
	"example.org",
	"*.example.net",
	"bob@example.com",
	"@lists.example.com",
	"postmaster",
	"smtp-in",
}

type lookupCase struct {
	service table.Service
	key     string
	want    bool
}

// TableSuite runs a set of general tests on tables produced by factory.
func TableSuite(t *testing.T, factory TableFactory) {
	testCases := []struct {
		name string
		test func(*testing.T, table.Table)
	}{
		{"netaddr", testNetAddr},
		{"domain", testDomain},
		{"mailaddr", testMailAddr},
		{"string", testString},
		{"concurrent", testConcurrent},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tbl, destroy, err := factory(t, suiteEntries)
			if err != nil {
				t.Fatal(err)
			}
			defer destroy()
			tc.test(t, tbl)
		})
	}
}

func runLookups(t *testing.T, tbl table.Table, cases []lookupCase) {
	t.Helper()
	for _, c := range cases {
		got, err := tbl.Lookup(context.Background(), c.service, c.key)
		if err != nil {
			t.Errorf("Lookup(%v, %q) failed: %v", c.service, c.key, err)
			continue
		}
		if got != c.want {
			t.Errorf("Lookup(%v, %q) == %v, want: %v", c.service, c.key, got, c.want)
		}
	}
}

// testNetAddr verifies literal, prefix and origin matching.
func testNetAddr(t *testing.T, tbl table.Table) {
	runLookups(t, tbl, []lookupCase{
		{table.NetAddr, "local", true},
		{table.NetAddr, "192.0.2.1", true},
		{table.NetAddr, "192.0.2.255", true},
		{table.NetAddr, "192.0.3.1", false},
		{table.NetAddr, "198.51.100.7", true},
		{table.NetAddr, "198.51.100.8", false},
		{table.NetAddr, "2001:db8::25", true},
		{table.NetAddr, "2001:db9::25", false},
	})
}

// testDomain verifies exact and wildcard domains.
func testDomain(t *testing.T, tbl table.Table) {
	runLookups(t, tbl, []lookupCase{
		{table.Domain, "example.org", true},
		{table.Domain, "EXAMPLE.ORG", true},
		{table.Domain, "mx.example.org", false},
		{table.Domain, "mx.example.net", true},
		{table.Domain, "a.b.example.net", true},
		{table.Domain, "example.net", false},
		{table.Domain, "example.com", false},
	})
}

// testMailAddr verifies full address, domain and user entries.
func testMailAddr(t *testing.T, tbl table.Table) {
	runLookups(t, tbl, []lookupCase{
		{table.MailAddr, "bob@example.com", true},
		{table.MailAddr, "alice@example.com", false},
		{table.MailAddr, "anyone@lists.example.com", true},
		{table.MailAddr, "postmaster@example.org", true},
		{table.MailAddr, "webmaster@example.org", false},
	})
}

// testString verifies opaque keys match exactly.
func testString(t *testing.T, tbl table.Table) {
	runLookups(t, tbl, []lookupCase{
		{table.String, "smtp-in", true},
		{table.String, "smtp", false},
		{table.String, "SMTP-IN", false},
	})
}

// testConcurrent verifies the table can be shared between goroutines.
func testConcurrent(t *testing.T, tbl table.Table) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				found, err := tbl.Lookup(context.Background(), table.NetAddr, "192.0.2.9")
				if err != nil || !found {
					t.Errorf("concurrent Lookup == %v, %v, want: true, nil", found, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
