// Package instagram is the transport for Instagram's public web surfaces:
// the web_profile_info API, the GraphQL timeline query and the rendered
// profile page. It returns raw bodies and typed errors; locating and
// normalizing records is left to the locate and normalize packages.
//
//	client := instagram.NewClient(cfg, proxy.NewRotator(endpoints), log)
//	body, err := client.FetchProfileInfo(ctx, "natgeo")
//	if errors.IsType(err, errors.ErrorTypeRateLimit) {
//	    // back off
//	}
package instagram
