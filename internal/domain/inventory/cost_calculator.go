package inventory

import "github.com/shopspring/decimal"

// CostPrecision decimales con los que se registran los costos unitarios.
const CostPrecision int32 = 4

// RoundCost redondeo half-even (bancario) a CostPrecision decimales.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(CostPrecision)
}

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Si el denominador no es positivo devuelve el costo actual sin cambios.
func CostCalculator(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual + cantEntrada
	if sum <= 0 {
		return costoActual
	}
	num := decimal.NewFromInt(stockActual).Mul(costoActual).
		Add(decimal.NewFromInt(cantEntrada).Mul(costoEntrada))
	return RoundCost(num.Div(decimal.NewFromInt(sum)))
}
