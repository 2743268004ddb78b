package beans

import "context"

// Disposable is implemented by beans holding resources to release on destruction.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is the context-aware form of Disposable. The container
// passes the context given to Stop, DestroyBean or DestroyScope.
//
// Example:
//
//	func (dc *DatabaseConnection) Close(ctx context.Context) error {
//	    done := make(chan error, 1)
//	    go func() {
//	        done <- dc.conn.Close()
//	    }()
//
//	    select {
//	    case err := <-done:
//	        return err
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// Lifecycle is implemented by beans that run between creation and destruction.
// Start is called after post-construct hooks; Stop before the bean is disposed.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
