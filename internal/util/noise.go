package util

import (
	"github.com/aquilax/go-perlin"
)

// Noise — детерминированный источник когерентного шума Перлина.
// Экземпляр неизменяем после создания, поэтому его можно безопасно
// использовать из нескольких горутин одновременно.
type Noise struct {
	p     *perlin.Perlin
	scale float64
	gain  float64
}

// NewNoise создаёт генератор шума с указанным сидом, масштабом и
// усилением. Масштаб задаёт "частоту" ландшафта: меньше — более
// плавный рельеф. Усиление растягивает значения Перлина, которые на
// практике концентрируются около нуля: без него высокие пороги
// (деревья, мобы) почти никогда не срабатывали бы.
func NewNoise(seed int64, scale, gain float64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Noise{
		p:     perlin.NewPerlin(alpha, beta, n, seed),
		scale: scale,
		gain:  gain,
	}
}

// At2D возвращает значение шума для мировых координат в диапазоне [0, 1].
// Координаты всегда мировые: соседние чанки, сгенерированные независимо,
// обязаны стыковаться без швов.
func (n *Noise) At2D(x, y float64) float64 {
	// Noise2D возвращает значение примерно в диапазоне [-1, 1]
	v := n.p.Noise2D(x*n.scale, y*n.scale) * n.gain
	v = (v + 1.0) / 2.0
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return v
}
