package usecase

import (
	"fmt"
	"math"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// 直前に払い出した番号より時計が遅れている場合に繰り上げる範囲（ミリ秒）
const orderNumberBumpWindow = 60_000

// OrderNumberGenerator は「ブランド接頭辞 + 現在時刻(ms)の下N桁」で注文番号を作る。
// 外部の状態は見ないため全体での一意性は保証しない。
// 同一プロセス内では同じミリ秒でも重複しないよう、直前の番号より大きい値を返す。
type OrderNumberGenerator struct {
	prefix  string
	digits  int
	modulus int64
	clock   Clock

	mu     sync.Mutex
	last   int64
	issued bool
}

func NewOrderNumberGenerator(prefix string, digits int, clock Clock) *OrderNumberGenerator {
	return &OrderNumberGenerator{
		prefix:  prefix,
		digits:  digits,
		modulus: int64(math.Pow10(digits)),
		clock:   clock,
	}
}

func (g *OrderNumberGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.clock.Now().UnixMilli() % g.modulus
	if g.issued && n <= g.last && g.last-n < orderNumberBumpWindow {
		n = (g.last + 1) % g.modulus
	}
	g.last = n
	g.issued = true

	return fmt.Sprintf("%s%0*d", g.prefix, g.digits, n)
}
