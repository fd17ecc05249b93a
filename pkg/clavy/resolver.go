package clavy

type ResolverFunc func() (AppID, bool)

func (f ResolverFunc) ForegroundApp() (AppID, bool) {
	return f()
}

type resolverChain []ForegroundResolver

// FirstOf tries each resolver in order and returns the first non-empty
// identifier.
func FirstOf(resolvers ...ForegroundResolver) ForegroundResolver {
	return resolverChain(resolvers)
}

func (c resolverChain) ForegroundApp() (AppID, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if app, ok := r.ForegroundApp(); ok && app != "" {
			return app, true
		}
	}
	return "", false
}
