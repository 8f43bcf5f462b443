package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/exoslabs/cosigner/internal/core/domain"
	"github.com/exoslabs/cosigner/internal/core/ports"
)

var (
	// ErrSigningNotAllowed is returned when a sign request is made for a
	// session whose tx the wallet cannot sign, or that is no longer active.
	ErrSigningNotAllowed = fmt.Errorf("signing is not allowed for this session")
	// ErrBroadcastNotAllowed is returned when a broadcast request is made
	// for a tx that is incomplete or not broadcastable.
	ErrBroadcastNotAllowed = fmt.Errorf("broadcast is not allowed for this session")
)

// SessionService manages the lifecycle of cooperative signing sessions.
// A session wraps an immutable snapshot of a wallet transaction; for
// multisig wallets it observes the advisory coordination lock and runs a
// local countdown that ends the session when the signing round times out.
type SessionService struct {
	repoManager     ports.RepoManager
	lockCoordinator ports.LockCoordinator
	walletSvc       ports.WalletService
	network         *chaincfg.Params
	sessionDuration int64

	countdownQuitChans map[string]chan struct{}
	countdownLock      *sync.Mutex

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewSessionService(
	repoManager ports.RepoManager,
	lockCoordinator ports.LockCoordinator,
	walletSvc ports.WalletService,
	network *chaincfg.Params,
	sessionDurationInSeconds int64,
) *SessionService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("session service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("session service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	svc := &SessionService{
		repoManager:        repoManager,
		lockCoordinator:    lockCoordinator,
		walletSvc:          walletSvc,
		network:            network,
		sessionDuration:    sessionDurationInSeconds,
		countdownQuitChans: make(map[string]chan struct{}),
		countdownLock:      &sync.Mutex{},
		log:                logFn,
		warn:               warnFn,
	}
	svc.registerHandlerForSessionEvents()

	go svc.resumeCountdowns()

	return svc
}

// StartSession snapshots the given raw transaction and opens a new signing
// session for it. For multisig wallets the remote lock, if any, seeds the
// countdown from its authoritative timestamp.
func (ss *SessionService) StartSession(
	ctx context.Context, txHex, description string,
) (*SessionInfo, error) {
	snapshot, err := domain.NewTxSnapshot(txHex, ss.network)
	if err != nil {
		return nil, err
	}

	walletInfo, err := ss.walletSvc.GetWalletInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve wallet info: %w", err)
	}

	var lock *domain.LockRecord
	if walletInfo.Multisig {
		lock, err = ss.lockCoordinator.GetLock(ctx, walletInfo.WalletHash)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve signing lock: %w", err)
		}
	}

	session, err := domain.NewSigningSession(
		uuid.NewString(), walletInfo.WalletHash, walletInfo.Multisig,
		snapshot, ss.sessionDuration, lock, time.Now().Unix(),
	)
	if err != nil {
		return nil, err
	}
	session.Description = description

	if _, err := ss.repoManager.SessionRepository().AddSession(
		ctx, session,
	); err != nil {
		return nil, err
	}

	ss.log(
		"started session %s for tx %s (state %s)",
		session.ID, session.Snapshot.TxID, session.State,
	)

	return ss.sessionInfo(ctx, session), nil
}

// GetSessionInfo returns the current view of a session, enriched with the
// wallet's view of the underlying tx.
func (ss *SessionService) GetSessionInfo(
	ctx context.Context, sessionID string,
) (*SessionInfo, error) {
	session, err := ss.repoManager.SessionRepository().GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ss.sessionInfo(ctx, session), nil
}

// ListSessions returns the view of every open session.
func (ss *SessionService) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	sessions, err := ss.repoManager.SessionRepository().GetAllSessions(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]SessionInfo, 0, len(sessions))
	for i := range sessions {
		list = append(list, *ss.sessionInfo(ctx, &sessions[i]))
	}
	return list, nil
}

// SignSession asks the wallet to sign the session's tx. Signing runs in
// background, the session stays responsive while it's in progress. Once the
// wallet returns, the signed tx replaces the session snapshot and, if the
// session was waiting for the coordination lock, the lock is observed to
// seed the countdown.
func (ss *SessionService) SignSession(
	ctx context.Context, sessionID string,
) error {
	session, err := ss.repoManager.SessionRepository().GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	canSign, err := ss.walletSvc.CanSign(ctx, session.Snapshot.TxHex)
	if err != nil {
		return fmt.Errorf("failed to check tx signability: %w", err)
	}
	if !session.CanSign(canSign) {
		return ErrSigningNotAllowed
	}

	go func() {
		signedHex, err := ss.walletSvc.SignTx(
			context.Background(), session.Snapshot.TxHex,
		)
		ss.onSignComplete(sessionID, signedHex, err)
	}()

	return nil
}

// BroadcastSession broadcasts the session's tx through the wallet. The
// signing round is consumed no matter the outcome, for multisig wallets the
// coordination lock is released even if broadcast fails.
func (ss *SessionService) BroadcastSession(
	ctx context.Context, sessionID string,
) (string, error) {
	session, err := ss.repoManager.SessionRepository().GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	txInfo, err := ss.walletSvc.GetTxInfo(ctx, session.Snapshot.TxHex)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve tx info: %w", err)
	}
	if !session.CanBroadcast(txInfo.CanBroadcast) {
		return "", ErrBroadcastNotAllowed
	}

	txid, brdErr := ss.walletSvc.BroadcastTx(
		ctx, session.Snapshot.TxHex, session.Description,
	)

	ss.onBroadcastComplete(ctx, sessionID, brdErr == nil)

	if brdErr != nil {
		return "", fmt.Errorf("failed to broadcast tx: %w", brdErr)
	}

	ss.log("broadcasted tx %s for session %s", txid, sessionID)
	return txid, nil
}

// SaveSession stores the session's tx in the wallet's local history so it
// can be resumed later.
func (ss *SessionService) SaveSession(
	ctx context.Context, sessionID string,
) error {
	session, err := ss.repoManager.SessionRepository().GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := ss.walletSvc.SaveTx(
		ctx, session.Snapshot.TxHex, session.Description,
	); err != nil {
		return fmt.Errorf("failed to save tx: %w", err)
	}

	if err := ss.repoManager.SessionRepository().UpdateSession(
		ctx, sessionID,
		func(s *domain.SigningSession) (*domain.SigningSession, error) {
			s.MarkSaved()
			return s, nil
		},
	); err != nil {
		return err
	}

	ss.log("saved tx %s for session %s", session.Snapshot.TxID, sessionID)
	return nil
}

// ExportSession serializes the session's tx to a portable document meant to
// be handed to the next cosigner.
func (ss *SessionService) ExportSession(
	ctx context.Context, sessionID string,
) (*ExportedTx, error) {
	session, err := ss.repoManager.SessionRepository().GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var fee int64
	if txInfo, err := ss.walletSvc.GetTxInfo(
		ctx, session.Snapshot.TxHex,
	); err == nil {
		fee = txInfo.Fee
	}

	body, err := newTxDocument(session.Snapshot, fee)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tx document: %w", err)
	}

	if err := ss.repoManager.SessionRepository().UpdateSession(
		ctx, sessionID,
		func(s *domain.SigningSession) (*domain.SigningSession, error) {
			s.MarkSaved()
			return s, nil
		},
	); err != nil {
		return nil, err
	}

	return &ExportedTx{
		Filename: session.Snapshot.ExportFilename(),
		Body:     body,
	}, nil
}

// CloseSession ends a session. The countdown is stopped and, for multisig
// wallets, the coordination lock is released exactly once across all exit
// paths. Closing an already closed or unknown session is a no-op.
func (ss *SessionService) CloseSession(
	ctx context.Context, sessionID string,
) error {
	ss.stopCountdown(sessionID)

	var releaseLock bool
	var walletHash string
	if err := ss.repoManager.SessionRepository().UpdateSession(
		ctx, sessionID,
		func(s *domain.SigningSession) (*domain.SigningSession, error) {
			s.Close()
			if s.NeedsLockRelease() && s.MarkLockReleased() {
				releaseLock = true
				walletHash = s.WalletHash
			}
			return s, nil
		},
	); err != nil {
		if err == domain.ErrSessionNotFound {
			return nil
		}
		return err
	}

	if releaseLock {
		if err := ss.lockCoordinator.DeleteLock(ctx, walletHash); err != nil {
			ss.warn(
				err, "failed to release signing lock for wallet %s", walletHash,
			)
		}
	}

	if err := ss.repoManager.SessionRepository().DeleteSession(
		ctx, sessionID,
	); err != nil && err != domain.ErrSessionNotFound {
		return err
	}

	ss.log("closed session %s", sessionID)
	return nil
}

func (ss *SessionService) sessionInfo(
	ctx context.Context, session *domain.SigningSession,
) *SessionInfo {
	var txInfo *ports.TxInfo
	if info, err := ss.walletSvc.GetTxInfo(
		ctx, session.Snapshot.TxHex,
	); err == nil {
		txInfo = info
	} else {
		ss.warn(err, "failed to retrieve tx info for session %s", session.ID)
	}

	canSign := false
	if ok, err := ss.walletSvc.CanSign(
		ctx, session.Snapshot.TxHex,
	); err == nil {
		canSign = ok
	}

	return newSessionInfo(session, txInfo, canSign)
}

func (ss *SessionService) onSignComplete(
	sessionID, signedHex string, signErr error,
) {
	ctx := context.Background()

	if signErr != nil {
		ss.warn(signErr, "wallet failed to sign tx for session %s", sessionID)
		return
	}

	snapshot, err := domain.NewTxSnapshot(signedHex, ss.network)
	if err != nil {
		ss.warn(err, "wallet returned invalid tx for session %s", sessionID)
		return
	}

	var becameLocked bool
	if err := ss.repoManager.SessionRepository().UpdateSession(
		ctx, sessionID,
		func(s *domain.SigningSession) (*domain.SigningSession, error) {
			s.ApplySignedTx(snapshot)
			if s.State == domain.SessionAwaitingLock {
				// signing placed or refreshed the remote lock, observe it to
				// seed the countdown from its timestamp.
				lock, err := ss.lockCoordinator.GetLock(ctx, s.WalletHash)
				if err != nil {
					ss.warn(
						err, "failed to retrieve signing lock for wallet %s",
						s.WalletHash,
					)
				}
				s.ObserveLock(lock, time.Now().Unix())
				becameLocked = s.State == domain.SessionLocked
			}
			return s, nil
		},
	); err != nil {
		// the session may have been closed while the wallet was signing.
		if err != domain.ErrSessionNotFound {
			ss.warn(err, "failed to update session %s after signing", sessionID)
		}
		return
	}

	if becameLocked {
		ss.spawnCountdown(sessionID)
	}

	ss.log(
		"signed tx %s for session %s (complete: %t)",
		snapshot.TxID, sessionID, snapshot.Complete,
	)
}

func (ss *SessionService) onBroadcastComplete(
	ctx context.Context, sessionID string, success bool,
) {
	var releaseLock bool
	var walletHash string
	if err := ss.repoManager.SessionRepository().UpdateSession(
		ctx, sessionID,
		func(s *domain.SigningSession) (*domain.SigningSession, error) {
			s.MarkSaved()
			if s.NeedsLockRelease() && s.MarkLockReleased() {
				releaseLock = true
				walletHash = s.WalletHash
			}
			return s, nil
		},
	); err != nil {
		ss.warn(err, "failed to update session %s after broadcast", sessionID)
		return
	}

	if releaseLock {
		if err := ss.lockCoordinator.DeleteLock(ctx, walletHash); err != nil {
			ss.warn(
				err, "failed to release signing lock for wallet %s", walletHash,
			)
		}
	}

	if success {
		if err := ss.CloseSession(ctx, sessionID); err != nil {
			ss.warn(err, "failed to close session %s after broadcast", sessionID)
		}
	}
}

func (ss *SessionService) registerHandlerForSessionEvents() {
	ss.repoManager.RegisterHandlerForSessionEvent(
		domain.SessionStarted, func(event domain.SessionEvent) {
			if event.Session.State == domain.SessionLocked {
				ss.spawnCountdown(event.Session.ID)
			}
		},
	)
}

// resumeCountdowns restores the countdown of sessions persisted in Locked
// state across restarts, re-syncing their remaining time from the
// coordinator's authoritative lock timestamp.
func (ss *SessionService) resumeCountdowns() {
	time.Sleep(time.Second)

	ctx := context.Background()
	sessions, err := ss.repoManager.SessionRepository().GetAllSessions(ctx)
	if err != nil {
		ss.warn(err, "failed to retrieve sessions to resume countdowns")
		return
	}

	for i := range sessions {
		session := sessions[i]
		if session.State != domain.SessionLocked {
			continue
		}

		lock, err := ss.lockCoordinator.GetLock(ctx, session.WalletHash)
		if err != nil {
			ss.warn(
				err, "failed to retrieve signing lock for wallet %s",
				session.WalletHash,
			)
		}
		if lock != nil {
			remaining := lock.Remaining(time.Now().Unix(), ss.sessionDuration)
			if err := ss.repoManager.SessionRepository().UpdateSession(
				ctx, session.ID,
				func(s *domain.SigningSession) (*domain.SigningSession, error) {
					s.TimeRemaining = remaining
					return s, nil
				},
			); err != nil {
				ss.warn(err, "failed to re-sync countdown of session %s", session.ID)
				continue
			}
		}

		ss.spawnCountdown(session.ID)
	}
}

func (ss *SessionService) spawnCountdown(sessionID string) {
	ss.countdownLock.Lock()
	if _, ok := ss.countdownQuitChans[sessionID]; ok {
		ss.countdownLock.Unlock()
		return
	}
	quitChan := make(chan struct{})
	ss.countdownQuitChans[sessionID] = quitChan
	ss.countdownLock.Unlock()

	ss.log("spawning countdown for session %s", sessionID)

	go func() {
		ctx := context.Background()
		t := time.NewTicker(time.Second)
		defer t.Stop()

		for {
			select {
			case <-quitChan:
				return
			case <-t.C:
				var expired bool
				if err := ss.repoManager.SessionRepository().UpdateSession(
					ctx, sessionID,
					func(s *domain.SigningSession) (*domain.SigningSession, error) {
						expired = s.Tick()
						return s, nil
					},
				); err != nil {
					// session gone, nothing left to count down.
					ss.removeCountdown(sessionID)
					return
				}
				if expired {
					ss.log("session %s timed out", sessionID)
					if err := ss.CloseSession(ctx, sessionID); err != nil {
						ss.warn(err, "failed to close expired session %s", sessionID)
					}
					return
				}
			}
		}
	}()
}

func (ss *SessionService) stopCountdown(sessionID string) {
	ss.countdownLock.Lock()
	defer ss.countdownLock.Unlock()

	if quitChan, ok := ss.countdownQuitChans[sessionID]; ok {
		close(quitChan)
		delete(ss.countdownQuitChans, sessionID)
	}
}

func (ss *SessionService) removeCountdown(sessionID string) {
	ss.countdownLock.Lock()
	defer ss.countdownLock.Unlock()
	delete(ss.countdownQuitChans, sessionID)
}
