package worldgen

import "fmt"

// commitToken is the plain-data sentinel RandomPortStrategy uses in place
// of a peer path when the strategy decides to commit rather than connect
// further.
const commitToken = "COMMIT"

// RandomPortStrategy picks among the port's current candidates (plus a
// COMMIT option when committing is already legal) by minimizing
// rng("<path>\0<peer-path|COMMIT>\0RandomPortStrategy"), retrying on a
// conflicting pick. Conservative mode always commits as soon as it is
// legal rather than rolling the dice on further connections.
type RandomPortStrategy struct {
	Conservative bool
}

func (s *RandomPortStrategy) Make(host ChoiceHost, g *Generation) (Value, Value, error) {
	p, ok := host.(*Port)
	if !ok {
		return nil, nil, NewUsageError("RandomPortStrategy can only drive a Port")
	}
	for {
		candidates := p.GetCandidates(g)
		canCommit := p.canCommitNow()
		if s.Conservative && canCommit {
			if err := p.Commit(g); err != nil {
				return nil, nil, err
			}
			return p.ChosenConnections(), commitToken, nil
		}
		if len(candidates) == 0 && !canCommit {
			return nil, nil, NewLogicError("port %s has no candidates and cannot commit", p.Obj().describe())
		}
		type option struct {
			token string
			peer  *Port
		}
		var options []option
		if canCommit {
			options = append(options, option{token: commitToken})
		}
		for _, c := range candidates {
			options = append(options, option{token: c.Obj().DottedPath(), peer: c})
		}
		best, _ := pickMin(options, func(o option) float64 {
			return g.RNG().Float64(portTag(p, o.token))
		})
		if best.token == commitToken {
			if err := p.Commit(g); err != nil {
				return nil, nil, err
			}
			return p.ChosenConnections(), commitToken, nil
		}
		if err := p.Connect(g, best.peer, p.ChosenConnections()[best.peer]+1); err != nil {
			p.MarkImpossible(g, best.peer)
			continue
		}
		return best.peer, best.token, nil
	}
}

func (s *RandomPortStrategy) Eliminate(host ChoiceHost, token Value, g *Generation) error {
	p, ok := host.(*Port)
	if !ok {
		return NewUsageError("RandomPortStrategy can only eliminate against a Port")
	}
	tok, ok := token.(string)
	if !ok {
		return NewUsageError("RandomPortStrategy token must be a string")
	}
	if tok == commitToken {
		p.MarkCommitImpossible(g)
		return nil
	}
	for peer := range p.chosenMap() {
		if peer.Obj().DottedPath() == tok {
			p.MarkImpossible(g, peer)
			return nil
		}
	}
	root := p.Obj().GetWorld()
	if root == nil {
		return NewUsageError("cannot resolve peer path %q: port is not rooted in a world", tok)
	}
	peerObj, err := root.Object.ObjectFromPath(splitPath(tok), false)
	if err != nil {
		return err
	}
	peer, ok := peerObj.impl.(*Port)
	if !ok {
		return NewUsageError("path %q does not resolve to a port", tok)
	}
	p.MarkImpossible(g, peer)
	return nil
}

func portTag(p *Port, token string) string {
	return fmt.Sprintf("%s\x00%s\x00RandomPortStrategy", p.Obj().DottedPath(), token)
}

func splitPath(dotted string) []string {
	var out []string
	cur := ""
	for _, r := range dotted {
		if r == '.' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}
