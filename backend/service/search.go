package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Searchable entity kinds
const (
	KindContracts  = "contracts"
	KindLandlords  = "landlords"
	KindTenants    = "tenants"
	KindProperties = "properties"
)

var allKinds = []string{KindContracts, KindLandlords, KindTenants, KindProperties}

// SearchQuery filters a search
type SearchQuery struct {
	Text   string
	Kinds  []string         // empty = every kind
	Status lifecycle.Status // contracts only, empty = any
}

// SearchResults groups matches by entity kind
type SearchResults struct {
	Contracts  []model.ContractView `json:"contracts"`
	Landlords  []model.Landlord     `json:"landlords"`
	Tenants    []model.Tenant       `json:"tenants"`
	Properties []model.Property     `json:"properties"`
}

// Total returns the number of matches across kinds
func (r SearchResults) Total() int {
	return len(r.Contracts) + len(r.Landlords) + len(r.Tenants) + len(r.Properties)
}

// Search matches the query text, ignoring case and accents, against the
// agency's records. Contracts match on their own fields and on the names of
// their landlord, tenant and property address.
func Search(ctx context.Context, store *Store, agency string, q SearchQuery, now time.Time) (SearchResults, error) {
	needle := fold(q.Text)
	kinds := q.Kinds
	if len(kinds) == 0 {
		kinds = allKinds
	}
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	results := SearchResults{
		Contracts:  []model.ContractView{},
		Landlords:  []model.Landlord{},
		Tenants:    []model.Tenant{},
		Properties: []model.Property{},
	}

	landlords, err := store.Landlords.ListByAgency(ctx, agency)
	if err != nil {
		return results, err
	}
	tenants, err := store.Tenants.ListByAgency(ctx, agency)
	if err != nil {
		return results, err
	}
	properties, err := store.Properties.ListByAgency(ctx, agency)
	if err != nil {
		return results, err
	}

	names := make(map[string]string, len(landlords)+len(tenants)+len(properties))

	for _, l := range landlords {
		names[l.ID] = l.Name
		if want[KindLandlords] && matchesPerson(needle, l.Person) {
			results.Landlords = append(results.Landlords, l)
		}
	}
	for _, tn := range tenants {
		names[tn.ID] = tn.Name
		if want[KindTenants] && (matchesPerson(needle, tn.Person) || contains(needle, tn.GuarantorName)) {
			results.Tenants = append(results.Tenants, tn)
		}
	}
	for _, p := range properties {
		names[p.ID] = p.Address()
		if want[KindProperties] && contains(needle, p.Code, p.Address(), p.PostalCode) {
			results.Properties = append(results.Properties, p)
		}
	}

	if want[KindContracts] {
		contracts, err := store.Contracts.ListByAgency(ctx, agency)
		if err != nil {
			return results, err
		}
		for _, c := range contracts {
			if !contains(needle, c.Code, names[c.LandlordID], names[c.TenantID], names[c.PropertyID]) {
				continue
			}
			view := model.NewContractView(c, now)
			if q.Status != "" && (view.Derived == nil || view.Derived.Status != q.Status) {
				continue
			}
			results.Contracts = append(results.Contracts, view)
		}
	}

	return results, nil
}

func matchesPerson(needle string, p model.Person) bool {
	return contains(needle, p.Name, p.Email, p.Phone) || containsDigits(needle, p.Document)
}

// contains reports whether any field contains the folded needle. An empty
// needle matches everything.
func contains(needle string, fields ...string) bool {
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if f != "" && strings.Contains(fold(f), needle) {
			return true
		}
	}
	return false
}

// containsDigits matches documents regardless of punctuation (123.456.789-09)
func containsDigits(needle, document string) bool {
	digits := onlyDigits(needle)
	if digits == "" {
		return false
	}
	return strings.Contains(onlyDigits(document), digits)
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// fold lowercases s and strips diacritics ("Locatário" -> "locatario")
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
