// Package diag defines the diagnostic model shared by the hint engine.
//
// # Purpose
//
//   - Record structural-invariant violations ("bugs") found while canonicalizing,
//     diffing, searching and individualizing, without aborting the run.
//   - Decouple producers from storage: engine code emits through a Reporter and
//     never formats or prints.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning, Error.
//   - Code – numeric identifier grouped by engine stage (see codes.go).
//   - Message – short human text.
//   - Primary – Loc of the node the finding is about (file, node id, line, column).
//   - Notes – optional secondary locations.
//
// # Emitting
//
// Producers build a report with ReportError/ReportWarning/ReportInfo, chain WithNote
// and call Emit; Reportf covers the one-line case. A nil Reporter discards.
//
// BagReporter collects into a Bag (sort, dedup, limit), ZapReporter forwards to a
// zap logger, DedupReporter filters repeats before another reporter.
//
// # Коды
//
// 1000 дерево и компаратор, 2000 канонизация, 3000 векторы изменений,
// 4000 diff, 5000 поиск, 6000 индивидуализация, 7000 границы (парсер, хранилище, оракул).
package diag
