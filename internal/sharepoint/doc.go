// Package sharepoint submits feedback records to a SharePoint list.
//
// A submission is three steps run strictly in order, stopping at the first
// failure and never retried:
//
//  1. Validate: every record field must be non-empty
//  2. AcquireToken: OAuth client-credentials exchange against the Microsoft
//     identity platform ({authority}/{tenant}/oauth2/v2.0/token)
//  3. CreateListItem: POST {site}/_api/web/lists/getbytitle('{list}')/items
//
// # Errors
//
// Every failure is an *Error whose Kind tells the steps apart:
//   - KindValidation: a required field is empty (no network call was made)
//   - KindAuth: the token exchange failed; the caller only sees a fixed
//     message, the identity platform's diagnostic is logged
//   - KindSubmission: the list item was rejected, StatusCode carries the
//     HTTP status
//
// # Usage Example
//
//	client := sharepoint.NewClient(cfg.SharePoint)
//	client.Metrics = metrics.Default()
//
//	if err := client.SubmitFeedback(ctx, record); err != nil {
//	    if sharepoint.IsAuthError(err) {
//	        // check the client secret
//	    }
//	    return err
//	}
package sharepoint
