package csvfile

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHistorical(t *testing.T) {
	input := "Departamento,Anio,Sexo,CasosEstimados,Fuente\n" +
		"Amazonas,2015,Masculino,41,MINSA\n" +
		"Amazonas, 2016 ,Masculino,44.5,MINSA\n" +
		"\n" +
		"Lima,2015,Femenino\n"

	records, err := DecodeHistorical(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, domain.RawRecord{Line: 2, Year: "2015", Department: "Amazonas", Sex: "Masculino", EstimatedCases: "41"}, records[0])
	assert.Equal(t, "2016", records[1].Year)
	assert.Equal(t, "44.5", records[1].EstimatedCases)
	assert.Equal(t, 5, records[2].Line)
	assert.Empty(t, records[2].EstimatedCases, "short row passes through for the parser to reject")
}

func TestDecodeHistorical_BOMHeader(t *testing.T) {
	input := "\ufeffAnio,Departamento,Sexo,CasosEstimados\n2015,Cusco,Femenino,12\n"

	records, err := DecodeHistorical(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Cusco", records[0].Department)
}

func TestDecodeHistorical_MissingColumn(t *testing.T) {
	_, err := DecodeHistorical(strings.NewReader("Anio,Departamento,CasosEstimados\n2015,Lima,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Sexo"`)
}

func TestDecodeHistorical_CorruptRowIsKept(t *testing.T) {
	input := "Anio,Departamento,Sexo,CasosEstimados\n" +
		"2015,Lima,Masculino,10\n" +
		"2016,Li\"ma,Masculino,11\n" +
		"2017,Lima,Masculino,12\n"

	records, err := DecodeHistorical(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2015", records[0].Year)
	assert.Equal(t, 3, records[1].Line)
	assert.ErrorIs(t, records[1].Err, csv.ErrBareQuote)
	assert.Equal(t, "2017", records[2].Year)

	ds := domain.ParseRecords(records)
	require.Len(t, ds.Rejected, 1)
	assert.Equal(t, 3, ds.Rejected[0].Line)
	assert.Len(t, ds.Records, 2)
}

func TestDecodeHistorical_Empty(t *testing.T) {
	_, err := DecodeHistorical(strings.NewReader(""))
	require.Error(t, err)
}

func TestEncodeProjections(t *testing.T) {
	projections := []domain.Projection{
		{Year: 2025, Department: "Lima", Sex: domain.SexMale, PredictedCases: 1203, HistoricalBaseline: 1000.04, IsAlert: true, Model: domain.ModelLinear},
		{Year: 2025, Department: "Madre de Dios", Sex: domain.SexFemale, PredictedCases: 50, HistoricalBaseline: 50, IsAlert: false, Model: domain.ModelConstant},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeProjections(&buf, projections))

	want := "Anio,Departamento,Sexo,CasosEstimados_Predichos,PromHist,Alerta,Modelo\n" +
		"2025,Lima,Masculino,1203,1000.0,True,lineal\n" +
		"2025,Madre de Dios,Femenino,50,50.0,False,constante\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeProjections_ByteIdentical(t *testing.T) {
	projections := []domain.Projection{
		{Year: 2026, Department: "Piura", Sex: domain.SexMale, PredictedCases: 77, HistoricalBaseline: 61.25, Model: domain.ModelLinear},
	}

	var a, b bytes.Buffer
	require.NoError(t, EncodeProjections(&a, projections))
	require.NoError(t, EncodeProjections(&b, projections))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestEncodeDecodeHistorical(t *testing.T) {
	records := []domain.HistoricalRecord{
		{Year: 2015, Department: "Tacna", Sex: domain.SexFemale, ObservedCases: 8},
		{Year: 2016, Department: "Tacna", Sex: domain.SexFemale, ObservedCases: 9.5},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeHistorical(&buf, records))

	raws, err := DecodeHistorical(&buf)
	require.NoError(t, err)
	ds := domain.ParseRecords(raws)
	assert.Empty(t, ds.Rejected)
	assert.Equal(t, records, ds.Records)
}

func TestDecodeProjections(t *testing.T) {
	input := "Anio,Departamento,Sexo,CasosEstimados_Predichos,PromHist,Alerta\n" +
		"2025,Amazonas,Masculino,52,47.3,True\n"

	rows, err := DecodeProjections(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ProjectionRow{
		Line: 2, Year: "2025", Department: "Amazonas", Sex: "Masculino",
		Predicted: "52", Baseline: "47.3", Alert: "True",
	}, rows[0])
}

func TestParseAlert(t *testing.T) {
	for _, v := range []string{"True", "true", "1"} {
		got, err := ParseAlert(v)
		require.NoError(t, err)
		assert.True(t, got, v)
	}
	for _, v := range []string{"False", "FALSE", "0"} {
		got, err := ParseAlert(v)
		require.NoError(t, err)
		assert.False(t, got, v)
	}
	_, err := ParseAlert("yes")
	assert.Error(t, err)
}

func TestFormatBaseline(t *testing.T) {
	assert.Equal(t, "47.3", FormatBaseline(47.25))
	assert.Equal(t, "0.0", FormatBaseline(0))
	assert.Equal(t, "145.0", FormatBaseline(145))
}
