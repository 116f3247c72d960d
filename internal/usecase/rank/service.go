package rank

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/domain/property"
	"github.com/proplens/rankd/internal/domain/query"
	dorank "github.com/proplens/rankd/internal/domain/rank"
	"github.com/proplens/rankd/internal/domain/strategy"
	"github.com/proplens/rankd/internal/domain/subquery"
	"github.com/proplens/rankd/internal/logger"
	"github.com/proplens/rankd/internal/metrics"
)

// Search parameter defaults.
const (
	DefaultTopN    = 20
	DefaultLimit   = 20
	MaxLimit       = 100
	defaultTimeout = 3 * time.Second

	// baselineFeature tags the non-decomposed fallback subquery.
	baselineFeature = "baseline"
)

// Service is the fusion and ranking core: it turns a classified query into
// subqueries, fans out to the three retrieval strategies, and merges the
// resulting lists into one ranked answer. Stateless across requests; every
// structure here is created per request and discarded with the response.
type Service struct {
	retriever  Retriever
	props      PropertyReader
	embedText  domain.Embedder
	embedImage domain.ImageSpaceEmbedder
	classifier Classifier
	planner    Planner

	topN        int
	callTimeout time.Duration
	boostScheme BoostScheme
	deduper     *Deduper
}

// New creates the ranking service.
func New(
	retriever Retriever,
	props PropertyReader,
	embedText domain.Embedder,
	embedImage domain.ImageSpaceEmbedder,
	classifier Classifier,
	planner Planner,
) *Service {
	return &Service{
		retriever:   retriever,
		props:       props,
		embedText:   embedText,
		embedImage:  embedImage,
		classifier:  classifier,
		planner:     planner,
		topN:        DefaultTopN,
		callTimeout: defaultTimeout,
		boostScheme: BoostTiered,
		deduper:     NewDeduper(0),
	}
}

// WithTopN overrides how many hits each strategy call retrieves.
func (s *Service) WithTopN(n int) *Service {
	if n > 0 {
		s.topN = n
	}
	return s
}

// WithCallTimeout overrides the per-call timeout for external calls.
func (s *Service) WithCallTimeout(d time.Duration) *Service {
	if d > 0 {
		s.callTimeout = d
	}
	return s
}

// WithBoostScheme selects the tag boost scheme.
func (s *Service) WithBoostScheme(scheme BoostScheme) *Service {
	if scheme == BoostTiered || scheme == BoostIncremental {
		s.boostScheme = scheme
	}
	return s
}

// retrieval holds one subquery's fan-out outcome.
type retrieval struct {
	sub   subquery.Subquery
	lists map[strategy.Strategy][]strategy.Hit
	hits  int
	errs  int
}

// Search runs the full pipeline: classify, decompose, fan out 3 calls per
// subquery plus 2 embeds, fuse, boost, dedupe. A failed (strategy, subquery)
// pair degrades to an empty list; only total failure of the baseline,
// non-decomposed path is fatal.
func (s *Service) Search(ctx context.Context, q *query.Query, limit int) ([]dorank.Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	cls := s.classifier.Classify(q)
	classified := q.WithIntent(cls.Intent)
	q = &classified

	p := s.planner.Decompose(ctx, q)
	subs := p.Subqueries
	if len(subs) == 0 {
		subs = []subquery.Subquery{s.baselineSubquery(q)}
	}

	retrievals := s.fanOut(ctx, q, subs)

	var totalHits, totalErrs int
	for i := range retrievals {
		totalHits += retrievals[i].hits
		totalErrs += retrievals[i].errs
	}

	if totalHits == 0 {
		if totalErrs == 0 {
			return []dorank.Result{}, nil
		}
		// Every decomposed call failed; the baseline query decides whether
		// this is a degraded-empty answer or a reportable outage.
		baseline := s.runSubquery(ctx, q, s.baselineSubquery(q))
		if baseline.hits == 0 && baseline.errs > 0 {
			return nil, fmt.Errorf("%w: all strategies failed for baseline query", domain.ErrTotalRetrievalFailure)
		}
		retrievals = []retrieval{baseline}
		if baseline.hits == 0 {
			return []dorank.Result{}, nil
		}
	}

	docs := s.fetchCandidates(ctx, retrievals)

	decision := s.decideWeighting(retrievals, q, docs)
	metrics.FusionModeTotal.WithLabelValues(string(decision.Mode)).Inc()

	results := s.fuse(retrievals, q, docs, decision)

	for i := range results {
		doc, ok := docs[results[i].DocID()]
		var docTags map[string]struct{}
		if ok {
			docTags = doc.Tags()
		}
		ApplyBoost(&results[i], docTags, q.MustHave(), s.boostScheme)
	}
	sortResults(results)

	results = s.deduper.Dedupe(results, docs, limit)

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	log.Info("search ranked",
		zap.String("intent", string(q.Intent())),
		zap.String("plan_path", string(p.Path)),
		zap.String("weighting", string(decision.Mode)),
		zap.Int("subqueries", len(subs)),
		zap.Int("candidates", len(docs)),
		zap.Int("results", len(results)),
		zap.Int("strategy_errors", totalErrs),
		zap.Duration("latency", time.Since(start)),
	)

	return results, nil
}

// baselineSubquery is the non-decomposed pass: the raw query text, unit weight.
func (s *Service) baselineSubquery(q *query.Query) subquery.Subquery {
	sq, _ := subquery.New(baselineFeature, q.Text(), 1.0, subquery.Max)
	return sq
}

// fanOut runs all subqueries concurrently and waits for the barrier.
func (s *Service) fanOut(ctx context.Context, q *query.Query, subs []subquery.Subquery) []retrieval {
	retrievals := make([]retrieval, len(subs))

	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			retrievals[i] = s.runSubquery(ctx, q, subs[i])
		}(i)
	}
	wg.Wait()

	return retrievals
}

// runSubquery embeds one subquery into both spaces, then issues the three
// strategy calls concurrently. Failures are absorbed as empty lists and
// counted; the request never fails here.
func (s *Service) runSubquery(ctx context.Context, q *query.Query, sub subquery.Subquery) retrieval {
	log := logger.FromContext(ctx)

	var textVec, imageVec []float32
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		textVec = s.embedOne(ctx, sub.Text(), false)
	}()
	go func() {
		defer wg.Done()
		imageVec = s.embedOne(ctx, sub.Text(), true)
	}()
	wg.Wait()

	sub = sub.WithEmbeddings(textVec, imageVec)

	out := retrieval{sub: sub, lists: make(map[strategy.Strategy][]strategy.Hit, 3)}

	type callResult struct {
		strat strategy.Strategy
		hits  []strategy.Hit
		err   error
	}
	results := make(chan callResult, 3)

	call := func(strat strategy.Strategy, fn func(context.Context) ([]strategy.Hit, error)) {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		hits, err := fn(callCtx)
		results <- callResult{strat: strat, hits: hits, err: err}
	}

	go call(strategy.Lexical, func(c context.Context) ([]strategy.Hit, error) {
		return s.retriever.SearchLexical(c, sub.Text(), q.HardFilters(), s.topN)
	})
	go call(strategy.TextVector, func(c context.Context) ([]strategy.Hit, error) {
		if len(textVec) == 0 {
			return nil, nil
		}
		return s.retriever.SearchTextVector(c, textVec, q.HardFilters(), s.topN)
	})
	go call(strategy.ImageVector, func(c context.Context) ([]strategy.Hit, error) {
		if len(imageVec) == 0 {
			return nil, nil
		}
		return s.retriever.SearchImageVector(c, imageVec, q.HardFilters(), s.topN)
	})

	for range 3 {
		r := <-results
		if r.err != nil {
			out.errs++
			metrics.StrategyCallsTotal.WithLabelValues(string(r.strat), "error").Inc()
			log.Warn("strategy call degraded to empty list",
				zap.Error(domain.NewStrategyCallError(string(r.strat), sub.FeatureTag(), r.err)))
			continue
		}
		metrics.StrategyCallsTotal.WithLabelValues(string(r.strat), "success").Inc()
		out.lists[r.strat] = r.hits
		out.hits += len(r.hits)
	}

	return out
}

func (s *Service) embedOne(ctx context.Context, text string, imageSpace bool) []float32 {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	var res domain.EmbeddingResult
	var err error
	if imageSpace {
		res, err = s.embedImage.EmbedForImageSpace(callCtx, text)
	} else {
		res, err = s.embedText.Embed(callCtx, text)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("embedding degraded", zap.Bool("image_space", imageSpace), zap.Error(err))
		return nil
	}
	return res.Embedding
}

// fetchCandidates loads every document that appeared in any list. A fetch
// failure degrades scoring (no boost, no greedy images, no dedupe metadata)
// but never fails the request.
func (s *Service) fetchCandidates(ctx context.Context, retrievals []retrieval) map[string]property.Property {
	seen := make(map[string]struct{})
	ids := make([]string, 0, 64)
	for i := range retrievals {
		for _, hits := range retrievals[i].lists {
			for j := range hits {
				id := hits[j].DocID()
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return map[string]property.Property{}
	}

	docs, err := s.props.GetMulti(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Warn("candidate fetch degraded", zap.Error(err))
		return map[string]property.Property{}
	}
	return docs
}

// decideWeighting resolves the weighting mode once per request by analyzing
// the primary (highest-weight) subquery's three lists.
func (s *Service) decideWeighting(
	retrievals []retrieval, q *query.Query, docs map[string]property.Property,
) Decision {
	primary := 0
	for i := range retrievals {
		if retrievals[i].sub.Weight() > retrievals[primary].sub.Weight() {
			primary = i
		}
	}

	tagsOf := func(docID string) map[string]struct{} {
		if doc, ok := docs[docID]; ok {
			return doc.Tags()
		}
		return nil
	}

	return Analyze(retrievals[primary].lists, q.MustHave(), tagsOf)
}

// fuse assembles the per-subquery lists into weighted RRF input. With more
// than one subquery the per-subquery image lists are replaced by a single
// synthetic list ranked by the greedy multi-feature image score, so one easy
// feature cannot serve every subquery through the same photo.
func (s *Service) fuse(
	retrievals []retrieval, q *query.Query, docs map[string]property.Property, decision Decision,
) []dorank.Result {
	kplan := PlanK(q.Intent())
	multi := len(retrievals) > 1

	kFor := func(strat strategy.Strategy) int {
		if decision.Mode == ConfidenceWeighting {
			return BaseK
		}
		return kplan[strat]
	}
	weightFor := func(strat strategy.Strategy) float64 {
		if decision.Mode == ConfidenceWeighting {
			// Scaled so a subquery keeps the same total mass as the
			// standard mode's three unit-weight lists.
			return decision.Weights[strat] * float64(len(decision.Weights))
		}
		return 1.0
	}

	var lists []List
	for i := range retrievals {
		r := &retrievals[i]
		for _, strat := range strategy.All() {
			if strat == strategy.ImageVector && multi {
				continue
			}
			hits := r.lists[strat]
			if len(hits) == 0 {
				continue
			}
			lists = append(lists, List{
				Strategy: strat,
				K:        kFor(strat),
				Weight:   r.sub.Weight() * weightFor(strat),
				Hits:     hits,
			})
		}
	}

	if multi {
		if greedy := s.greedyImageList(retrievals, docs); len(greedy) > 0 {
			lists = append(lists, List{
				Strategy: strategy.ImageVector,
				K:        kFor(strategy.ImageVector),
				Weight:   weightFor(strategy.ImageVector),
				Hits:     greedy,
			})
		}
	}

	return Fuse(lists)
}

// greedyImageList ranks all candidates by their greedy multi-feature image
// score and emits the ordering as a synthetic image-strategy list. Subquery
// weights are already inside the greedy score, so the list itself carries
// unit subquery weight.
func (s *Service) greedyImageList(
	retrievals []retrieval, docs map[string]property.Property,
) []strategy.Hit {
	subs := make([]subquery.Subquery, len(retrievals))
	for i := range retrievals {
		subs[i] = retrievals[i].sub
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type scoredDoc struct {
		id    string
		score float64
	}
	scoredDocs := make([]scoredDoc, 0, len(ids))
	for _, id := range ids {
		doc := docs[id]
		score, _ := ScoreImages(subs, doc.Images())
		if score > 0 {
			scoredDocs = append(scoredDocs, scoredDoc{id: id, score: score})
		}
	}

	sort.SliceStable(scoredDocs, func(i, j int) bool {
		if scoredDocs[i].score != scoredDocs[j].score {
			return scoredDocs[i].score > scoredDocs[j].score
		}
		return scoredDocs[i].id < scoredDocs[j].id
	})

	hits := make([]strategy.Hit, len(scoredDocs))
	for i, sd := range scoredDocs {
		hits[i] = strategy.NewHit(sd.id, i+1, sd.score, strategy.ImageVector)
	}
	return hits
}

func sortResults(results []dorank.Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].DocID() < results[j].DocID()
	})
}
