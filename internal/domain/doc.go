// Package domain models estimated HIV case counts for Peruvian departments and
// the forecast-and-alert engine that projects them forward.
//
// # Data Source
//
// The historical table (DATASET_VIH.csv) carries one row per year, department
// and sex:
//
//	Anio,Departamento,Sexo,CasosEstimados
//	2015,Amazonas,Masculino,41
//
// Sexo is "Masculino" or "Femenino". CasosEstimados is a non-negative count
// that may carry decimals in modelled datasets. Rows whose year or count does
// not parse are excluded from their group but still register the group, so a
// group whose every row was rejected surfaces as insufficient data.
//
// # Forecast
//
// Records are grouped by (department, sex). For every group the engine:
//
//   - computes the historical baseline: the mean of CasosEstimados over the
//     configured window (2015-2024 by default), see [ComputeBaseline];
//   - fits an ordinary least squares line year -> cases over every usable
//     record in the group, see [FitTrend];
//   - evaluates the line at each target year (2025-2030 by default), rounds
//     half away from zero and clamps at zero;
//   - flags the projection when it exceeds the threshold produced by the
//     configured [AlertRule] (strictly greater).
//
// Groups with fewer than two distinct years fall back to a constant
// projection equal to their observed mean. Those rows are marked
// [StatusConstant] and reported as degraded. Groups without a single record
// inside the baseline window get no projections and are reported as
// [StatusInsufficient].
//
// # Determinism
//
// The engine is a pure function of its inputs. Group order is sorted by
// department then sex, and projection IDs are SHA-256 hashes of
// department|sex|year, so re-running on identical input reproduces identical
// output. See [ProjectionID] and [RunID].
package domain
