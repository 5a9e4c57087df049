package game

// resolveCollision applies the mass-weighted elastic exchange to an overlapping pair.
// Velocities are decomposed on the contact normal and tangent, so resolving (a, b)
// and (b, a) produce identical results. It reports whether the pair was in contact.
func resolveCollision(a, b *Body) (CollisionEvent, bool) {
	d := b.Position.Minus(a.Position)
	dist := d.Magnitude()
	minDist := a.Radius + b.Radius

	if dist >= minDist {
		return CollisionEvent{}, false
	}
	if !d.IsFinite() {
		return CollisionEvent{}, false
	}
	// Coincident centers have no defined normal: separate along x, lower ID to the left,
	// and leave velocities alone.
	if dist == 0 {
		left, right := a, b
		if b.ID < a.ID {
			left, right = b, a
		}
		left.Position.X -= minDist / 2
		right.Position.X += minDist / 2
		return CollisionEvent{}, false
	}

	savedA, savedB := *a, *b

	n := d.Times(1 / dist)
	t := Vec2{X: -n.Y, Y: n.X}

	v1n, v1t := a.Velocity.Dot(n), a.Velocity.Dot(t)
	v2n, v2t := b.Velocity.Dot(n), b.Velocity.Dot(t)
	relSpeed := a.Velocity.Minus(b.Velocity).Magnitude()

	// Only exchange momentum while approaching; a separating pair just gets pushed apart.
	if v1n-v2n > 0 {
		m1, m2 := a.Mass, b.Mass
		total := m1 + m2
		v1nFinal := ((m1-m2)*v1n + 2*m2*v2n) / total
		v2nFinal := ((m2-m1)*v2n + 2*m1*v1n) / total

		a.Velocity = n.Times(v1nFinal).Plus(t.Times(v1t)).Times(CoinRestitution)
		b.Velocity = n.Times(v2nFinal).Plus(t.Times(v2t)).Times(CoinRestitution)
	}

	overlap := (minDist - dist) / 2
	a.Position = a.Position.Minus(n.Times(overlap))
	b.Position = b.Position.Plus(n.Times(overlap))

	if !a.Position.IsFinite() || !b.Position.IsFinite() || !a.Velocity.IsFinite() || !b.Velocity.IsFinite() {
		*a, *b = savedA, savedB
		return CollisionEvent{}, false
	}

	return CollisionEvent{Type: "body", BodyID: a.ID, TargetID: b.ID, Speed: relSpeed}, true
}
