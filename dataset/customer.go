// Package dataset loads the gym membership dataset and produces the seeded
// train/test partitions the analysis runs on.
//
// The expected input is the public gym churn CSV: six categorical columns
// (gender, Near_Location, Partner, Promo_friends, Phone, Group_visits),
// seven numeric columns (Contract_period, Age, Avg_additional_charges_total,
// Month_to_end_contract, Lifetime, Avg_class_frequency_total,
// Avg_class_frequency_current_month) and the binary Churn label. Records are
// immutable after load.
package dataset

import (
	"gonum.org/v1/gonum/mat"
)

// Column names as they appear in the CSV header.
const (
	ColGender             = "gender"
	ColNearLocation       = "Near_Location"
	ColPartner            = "Partner"
	ColPromoFriends       = "Promo_friends"
	ColPhone              = "Phone"
	ColGroupVisits        = "Group_visits"
	ColContractPeriod     = "Contract_period"
	ColAge                = "Age"
	ColAvgAdditional      = "Avg_additional_charges_total"
	ColMonthToEnd         = "Month_to_end_contract"
	ColLifetime           = "Lifetime"
	ColClassFreqTotal     = "Avg_class_frequency_total"
	ColClassFreqCurrMonth = "Avg_class_frequency_current_month"
	ColChurn              = "Churn"
)

// CategoricalColumns lists the columns treated as categories and
// dummy-encoded before modelling, in canonical order.
var CategoricalColumns = []string{
	ColGender,
	ColNearLocation,
	ColPartner,
	ColPromoFriends,
	ColPhone,
	ColGroupVisits,
}

// NumericColumns lists the columns standardized before modelling, in
// canonical order.
var NumericColumns = []string{
	ColContractPeriod,
	ColAge,
	ColAvgAdditional,
	ColMonthToEnd,
	ColLifetime,
	ColClassFreqTotal,
	ColClassFreqCurrMonth,
}

// Customer is one member record. Categorical values keep their raw string
// form; the preprocessor decides how to encode them.
type Customer struct {
	Gender       string
	NearLocation string
	Partner      string
	PromoFriends string
	Phone        string
	GroupVisits  string

	ContractPeriod     float64
	Age                float64
	AvgAdditional      float64
	MonthToEnd         float64
	Lifetime           float64
	ClassFreqTotal     float64
	ClassFreqCurrMonth float64

	Churn int
}

func (c Customer) categorical() []string {
	return []string{c.Gender, c.NearLocation, c.Partner, c.PromoFriends, c.Phone, c.GroupVisits}
}

func (c Customer) numeric() []float64 {
	return []float64{
		c.ContractPeriod,
		c.Age,
		c.AvgAdditional,
		c.MonthToEnd,
		c.Lifetime,
		c.ClassFreqTotal,
		c.ClassFreqCurrMonth,
	}
}

// Table is an immutable collection of customer records.
type Table struct {
	Records []Customer
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// Categorical returns the categorical values as an n x 6 string grid, row
// order preserved, columns in CategoricalColumns order.
func (t *Table) Categorical() [][]string {
	out := make([][]string, len(t.Records))
	for i, rec := range t.Records {
		out[i] = rec.categorical()
	}
	return out
}

// Numeric returns the numeric values as an n x 7 matrix, columns in
// NumericColumns order.
func (t *Table) Numeric() *mat.Dense {
	n := len(t.Records)
	X := mat.NewDense(n, len(NumericColumns), nil)
	for i, rec := range t.Records {
		X.SetRow(i, rec.numeric())
	}
	return X
}

// Labels returns the churn labels as a column vector of 0/1 values.
func (t *Table) Labels() *mat.VecDense {
	n := len(t.Records)
	y := mat.NewVecDense(n, nil)
	for i, rec := range t.Records {
		y.SetVec(i, float64(rec.Churn))
	}
	return y
}

// ChurnRate returns the fraction of records with a positive churn label.
func (t *Table) ChurnRate() float64 {
	if len(t.Records) == 0 {
		return 0
	}
	churned := 0
	for _, rec := range t.Records {
		if rec.Churn == 1 {
			churned++
		}
	}
	return float64(churned) / float64(len(t.Records))
}

// Loyal returns the subset of records that did not churn. The EDA views of
// the report run over this subset.
func (t *Table) Loyal() *Table {
	loyal := &Table{}
	for _, rec := range t.Records {
		if rec.Churn == 0 {
			loyal.Records = append(loyal.Records, rec)
		}
	}
	return loyal
}
