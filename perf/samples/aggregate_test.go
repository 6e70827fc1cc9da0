package samples

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstperf/forestc/perf"
)

func table(t *testing.T, text string) *perf.Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(text), "inline")
	require.NoError(t, err)
	return tbl
}

func valueByKey(agg *perf.Aggregate) map[string]float64 {
	out := make(map[string]float64, len(agg.Records))
	for _, r := range agg.Records {
		out[strings.Join(r.Key, "/")] = r.Value
	}
	return out
}

func TestInferArgumentColumns_PrefixInHeaderOrder(t *testing.T) {
	tbl := table(t, "time,arg2,name,arg1,argkind\n1,2,x,3,big\n")
	// Non-numeric argkind still matches the prefix
	assert.Equal(t, []string{"arg2", "arg1", "argkind"}, InferArgumentColumns(tbl))
}

func TestMedianBySignature_Scenario(t *testing.T) {
	// GIVEN rows (arg1=1,time=10), (arg1=1,time=20), (arg1=2,time=5)
	tbl := table(t, "arg1,time\n1,10\n1,20\n2,5\n")

	// WHEN aggregated to medians
	agg, err := MedianBySignature(tbl, nil, "time")
	require.NoError(t, err)

	// THEN one row per signature with the standard median
	assert.Equal(t, []string{"arg1"}, agg.Columns)
	assert.Equal(t, map[string]float64{"1": 15, "2": 5}, valueByKey(agg))
}

func TestMedianBySignature_NumericCellsGroupByValue(t *testing.T) {
	// GIVEN the same argument written as 1 and 1.0
	tbl := table(t, "arg1,time\n1,10\n1.0,20\n2,5\n")

	// WHEN aggregated to medians
	agg, err := MedianBySignature(tbl, nil, "time")
	require.NoError(t, err)

	// THEN both rows form one signature keyed by the first-seen text
	require.Len(t, agg.Records, 2)
	assert.Equal(t, map[string]float64{"1": 15, "2": 5}, valueByKey(agg))
}

func TestMedianBySignature_EquivalentSpellingsAndWhitespace(t *testing.T) {
	// TrimLeadingSpace handles leading blanks; trailing ones and exponent
	// or signed-zero spellings must group too
	tbl := table(t, "arg1,arg2,time\n"+
		"1,0,1\n"+
		"1e0,-0,3\n"+
		"\"1 \",0.0,5\n"+
		"x ,0,7\n"+
		"x,0,9\n")
	agg, err := MedianBySignature(tbl, nil, "time")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"1/0": 3, "x /0": 8}, valueByKey(agg))
}

func TestSignatureValue(t *testing.T) {
	assert.Equal(t, signatureValue("1"), signatureValue("1.0"))
	assert.Equal(t, signatureValue("1"), signatureValue(" 1e0 "))
	assert.Equal(t, signatureValue("0"), signatureValue("-0.0"))
	assert.NotEqual(t, signatureValue("1"), signatureValue("1.5"))
	assert.Equal(t, "big", signatureValue(" big "))
}

func TestDecileBySignature_NumericCellsGroupByValue(t *testing.T) {
	tbl := table(t, "arg1,time\n2,1\n2.00,3\n")
	agg, err := DecileBySignature(tbl, nil, "time")
	require.NoError(t, err)
	require.Len(t, agg.Records, DecilePoints)
	assert.Equal(t, []string{"2", "0"}, agg.Records[0].Key)
}

func TestMedianBySignature_OddAndEvenGroups(t *testing.T) {
	tbl := table(t, "arg1,arg2,time\n"+
		"a,1,9\na,1,1\na,1,5\n"+ // odd: middle order statistic
		"b,1,4\nb,1,1\nb,1,3\nb,1,100\n") // even: mean of 3 and 4
	agg, err := MedianBySignature(tbl, []string{"arg1", "arg2"}, "time")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a/1": 5, "b/1": 3.5}, valueByKey(agg))
}

func TestMedianBySignature_RegroupYieldsUniqueSignatures(t *testing.T) {
	tbl := table(t, "arg1,arg2,time\n1,1,1\n1,2,2\n1,1,3\n2,1,4\n1,2,5\n")
	agg, err := MedianBySignature(tbl, nil, "time")
	require.NoError(t, err)

	// Re-grouping the aggregate on the same key leaves one row per signature
	again, err := MedianBySignature(agg.ToTable(), agg.Columns, "time")
	require.NoError(t, err)
	assert.Len(t, again.Records, 3)
	assert.Equal(t, valueByKey(agg), valueByKey(again))
}

func TestDecileBySignature_TenRowsNonDecreasing(t *testing.T) {
	// GIVEN two signatures with 11 and 2 samples
	var b strings.Builder
	b.WriteString("arg1,time\n")
	for _, v := range []string{"10", "0", "9", "1", "8", "2", "7", "3", "6", "4", "5"} {
		b.WriteString("x," + v + "\n")
	}
	b.WriteString("y,1\ny,2\n")
	tbl := table(t, b.String())

	// WHEN expanded into deciles
	agg, err := DecileBySignature(tbl, nil, "time")
	require.NoError(t, err)

	// THEN the percentile index becomes a signature column
	assert.Equal(t, []string{"arg1", perf.PercentileColumn}, agg.Columns)
	require.Len(t, agg.Records, 2*DecilePoints)

	got := valueByKey(agg)
	for _, sig := range []string{"x", "y"} {
		prev := -1.0
		for p := 0; p < DecilePoints; p++ {
			v, ok := got[sig+"/"+string(rune('0'+p))]
			require.True(t, ok, "missing %s percentile %d", sig, p)
			assert.GreaterOrEqual(t, v, prev)
			prev = v
		}
	}
	// 0..10 evenly: the p-th decile is exactly p
	assert.Equal(t, 3.0, got["x/3"])
	assert.Equal(t, 9.0, got["x/9"])
	// two samples interpolate linearly: rank 0.5 at the 50th percentile
	assert.InDelta(t, 1.5, got["y/5"], 1e-12)
	assert.Equal(t, 1.0, got["y/0"])
}

func TestAggregate_EmptyInput(t *testing.T) {
	tbl := table(t, "arg1,time\n")
	_, err := MedianBySignature(tbl, nil, "time")
	assert.True(t, errors.Is(err, perf.ErrEmptyInput), "got %v", err)
	_, err = DecileBySignature(tbl, nil, "time")
	assert.True(t, errors.Is(err, perf.ErrEmptyInput), "got %v", err)
}

func TestAggregate_MissingColumns(t *testing.T) {
	tbl := table(t, "arg1,time\n1,2\n")

	_, err := MedianBySignature(tbl, []string{"arg9"}, "time")
	assert.True(t, errors.Is(err, perf.ErrMissingColumn), "got %v", err)

	_, err = MedianBySignature(tbl, nil, "latency")
	assert.True(t, errors.Is(err, perf.ErrMissingColumn), "got %v", err)

	noArgs := table(t, "size,time\n1,2\n")
	_, err = MedianBySignature(noArgs, nil, "time")
	assert.True(t, errors.Is(err, perf.ErrMissingColumn), "got %v", err)
}

func TestAggregate_NonNumericMetric_TypeError(t *testing.T) {
	tbl := table(t, "arg1,time\n1,2\n1,fast\n")
	_, err := MedianBySignature(tbl, nil, "time")
	require.Error(t, err)
	assert.True(t, errors.Is(err, perf.ErrType), "got %v", err)
	assert.Contains(t, err.Error(), "fast")
}

func TestAggregate_DispatchesByMode(t *testing.T) {
	tbl := table(t, "arg1,time\n1,10\n1,20\n")

	median, err := Aggregate(tbl, ModeMedian, nil, "time")
	require.NoError(t, err)
	assert.Len(t, median.Records, 1)

	decile, err := Aggregate(tbl, ModeDecile, nil, "time")
	require.NoError(t, err)
	assert.Len(t, decile.Records, DecilePoints)

	_, err = Aggregate(tbl, "mean", nil, "time")
	assert.Error(t, err)
}
