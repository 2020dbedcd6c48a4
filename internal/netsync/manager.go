package netsync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"hexempire/internal/chain"
	"hexempire/internal/engine"
)

var (
	metricDeltasBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_sync_deltas_built_total",
		Help: "State deltas generated for peers.",
	})
	metricFullSyncFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_sync_full_sync_fallbacks_total",
		Help: "Times a delta was abandoned in favor of a full snapshot.",
	})
	metricEventsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_sync_events_deduped_total",
		Help: "Incoming events dropped as already seen.",
	})
	metricBatchesFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_sync_batches_flushed_total",
		Help: "Event batches emitted.",
	})
	metricBatchesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexempire_sync_batches_sent_total",
		Help: "Event batches delivered to peers.",
	})
	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hexempire_sync_queue_depth",
		Help: "Events waiting in the priority queue.",
	})
)

// SyncConfig sizes the sync pipeline.
type SyncConfig struct {
	MaxDeltaChanges int
	QueueCapacity   int
	FairServe       int // 0 = strict priority
	BatchSize       int
	BatchDelay      time.Duration
	CacheSize       int
	SeenSize        int
	Compressor      CompressorConfig
	Backoff         BackoffConfig
}

// DefaultSyncConfig is tuned for a handful of peers on one game.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		MaxDeltaChanges: 64,
		QueueCapacity:   1024,
		FairServe:       4,
		BatchSize:       16,
		BatchDelay:      200 * time.Millisecond,
		CacheSize:       512,
		SeenSize:        4096,
		Compressor:      DefaultCompressorConfig(),
		Backoff:         DefaultBackoffConfig(),
	}
}

// SyncManager is the composition root of the sync pipeline: engine
// effects mark entities dirty, peers pull version-bracketed deltas,
// outbound events flow through dedup, priority, batching, and
// compression.
type SyncManager struct {
	cfg SyncConfig
	log logrus.FieldLogger

	Tracker    *DirtyTracker
	Deltas     *DeltaSyncManager
	Queue      *EventPriorityQueue
	Batcher    *EventBatcher
	Compressor *PayloadCompressor
	Cache      *EventCache
	Pool       *ConnectionPool
}

// NewSyncManager wires the pipeline. The source may be nil when deltas
// only need to name entities.
func NewSyncManager(cfg SyncConfig, source EntitySource, logger logrus.FieldLogger) *SyncManager {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	tracker := NewDirtyTracker()
	queue := NewEventPriorityQueue(cfg.QueueCapacity)
	if cfg.FairServe > 0 {
		queue.SetFair(cfg.FairServe)
	}
	return &SyncManager{
		cfg:        cfg,
		log:        logger.WithField("component", "netsync"),
		Tracker:    tracker,
		Deltas:     NewDeltaSyncManager(tracker, source),
		Queue:      queue,
		Batcher:    NewEventBatcher(cfg.BatchSize, cfg.BatchDelay),
		Compressor: NewPayloadCompressor(cfg.Compressor),
		Cache:      NewEventCache(cfg.CacheSize, cfg.SeenSize),
		Pool:       NewConnectionPool(cfg.Backoff, nil, logger),
	}
}

// RecordEffects translates an action's effects into dirty marks so the
// next delta carries exactly what changed.
func (m *SyncManager) RecordEffects(effects []engine.Effect) {
	for _, eff := range effects {
		for _, id := range entitiesFor(eff) {
			m.Tracker.MarkDirty(id)
		}
		switch eff.Kind {
		case engine.EffectUnitDestroyed, engine.EffectUnitDeleted:
			m.Tracker.MarkDeleted(EntityID{Type: EntityUnit, ID: eff.UnitID})
		}
	}
}

// entitiesFor maps one effect onto the entities it touched.
func entitiesFor(eff engine.Effect) []EntityID {
	switch eff.Kind {
	case engine.EffectUnitCreated, engine.EffectUnitMoved, engine.EffectUnitDamaged,
		engine.EffectUnitFortified, engine.EffectUnitSlept, engine.EffectUnitWoke,
		engine.EffectUnitUpgraded:
		return []EntityID{{Type: EntityUnit, ID: eff.UnitID}}

	case engine.EffectCityFounded, engine.EffectCityDamaged, engine.EffectCityGrew,
		engine.EffectCityStarved, engine.EffectProductionCompleted,
		engine.EffectProductionSet, engine.EffectItemBought, engine.EffectBuildingSold,
		engine.EffectCitizenAssigned, engine.EffectCitizenUnassigned:
		return []EntityID{{Type: EntityCity, ID: eff.CityID}}

	case engine.EffectCityCaptured:
		return []EntityID{
			{Type: EntityCity, ID: eff.CityID},
			{Type: EntityPlayer, ID: eff.PlayerID},
			{Type: EntityPlayer, ID: eff.TargetID},
		}

	case engine.EffectBordersExpanded:
		return []EntityID{
			{Type: EntityCity, ID: eff.CityID},
			{Type: EntityTerritory, ID: eff.CityID},
		}

	case engine.EffectImprovementBuilt, engine.EffectRoadBuilt, engine.EffectFeatureRemoved:
		id := ""
		if eff.Position != nil {
			id = fmt.Sprintf("%d,%d", eff.Position.Q, eff.Position.R)
		}
		return []EntityID{{Type: EntityResource, ID: id}}

	case engine.EffectResearchSet, engine.EffectTechCompleted:
		return []EntityID{{Type: EntityTech, ID: eff.PlayerID}}

	case engine.EffectPlayerJoined, engine.EffectPlayerEliminated:
		return []EntityID{{Type: EntityPlayer, ID: eff.PlayerID}}

	case engine.EffectWarDeclared, engine.EffectPeaceProposed,
		engine.EffectPeaceAccepted, engine.EffectPeaceRejected:
		return []EntityID{{Type: EntityDiplomacy, ID: pairKey(eff.PlayerID, eff.TargetID)}}

	case engine.EffectGameCreated, engine.EffectGameStarted,
		engine.EffectGameEnded, engine.EffectTurnEnded:
		return []EntityID{{Type: EntitySettings, ID: "game"}}
	}
	return nil
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// IngestEvent pushes a received event into the outbound pipeline after
// deduplication. Returns false for duplicates or a full queue.
func (m *SyncManager) IngestEvent(ev *chain.GameEvent) bool {
	if fresh := m.Cache.Add(ev); !fresh {
		metricEventsDeduped.Inc()
		return false
	}
	if err := m.Queue.Enqueue(ev); err != nil {
		m.log.WithField("event", ev.ID).WithError(err).Warn("event dropped")
		metricQueueDepth.Set(float64(m.Queue.Len()))
		return false
	}
	metricQueueDepth.Set(float64(m.Queue.Len()))
	return true
}

// NextBatch drains up to the batch size from the priority queue and
// flushes, returning nil when nothing is ready.
func (m *SyncManager) NextBatch() *EventBatch {
	for i := 0; i < m.cfg.BatchSize; i++ {
		ev, found := m.Queue.Dequeue()
		if !found {
			break
		}
		if batch := m.Batcher.Add(ev); batch != nil {
			metricQueueDepth.Set(float64(m.Queue.Len()))
			metricBatchesFlushed.Inc()
			return batch
		}
	}
	metricQueueDepth.Set(float64(m.Queue.Len()))
	batch := m.Batcher.Poll()
	if batch != nil {
		metricBatchesFlushed.Inc()
	}
	return batch
}

// BatchFrame is the wire envelope for one event batch: the batch JSON
// run through the payload compressor, with the id repeated outside the
// payload so receivers can dedup before inflating.
type BatchFrame struct {
	BatchID uint64 `json:"batchId"`
	Payload []byte `json:"payload"`
}

// EncodeBatchFrame frames a batch for the wire.
func (m *SyncManager) EncodeBatchFrame(batch *EventBatch) (*BatchFrame, error) {
	raw, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encoding batch %d: %w", batch.ID, err)
	}
	payload, err := m.Compressor.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("compressing batch %d: %w", batch.ID, err)
	}
	return &BatchFrame{BatchID: batch.ID, Payload: payload}, nil
}

// DecodeBatchFrame inverts EncodeBatchFrame, verifying the compressed
// payload on the way in.
func (m *SyncManager) DecodeBatchFrame(frame *BatchFrame) (*EventBatch, error) {
	raw, err := m.Compressor.Decompress(frame.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding batch %d: %w", frame.BatchID, err)
	}
	var batch EventBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("decoding batch %d: %w", frame.BatchID, err)
	}
	return &batch, nil
}

// Flush drains every ready batch to the peer over a pooled connection,
// returning how many were delivered. A send failure leaves later events
// queued; the failed batch itself is lost to this peer, which is
// acceptable because the relay's stored chain remains the source of
// truth for recovery.
func (m *SyncManager) Flush(url string) (int, error) {
	sent := 0
	for {
		batch := m.NextBatch()
		if batch == nil {
			return sent, nil
		}
		frame, err := m.EncodeBatchFrame(batch)
		if err != nil {
			return sent, err
		}
		conn, err := m.Pool.Get(url)
		if err != nil {
			return sent, err
		}
		if err := conn.SendJSON(frame); err != nil {
			return sent, err
		}
		metricBatchesSent.Inc()
		sent++
	}
}

// DeltaForPeer builds the peer's next delta. The second return is true
// when the peer is behind but too far gone for a delta, meaning the
// caller must send a full snapshot instead.
func (m *SyncManager) DeltaForPeer(peer string) (*StateDelta, bool) {
	delta := m.Deltas.CreateDeltaForPeer(peer, m.cfg.MaxDeltaChanges)
	if delta != nil {
		metricDeltasBuilt.Inc()
		return delta, false
	}
	if m.Deltas.PeerVersion(peer) != m.Tracker.Version() {
		metricFullSyncFallbacks.Inc()
		return nil, true
	}
	return nil, false
}
